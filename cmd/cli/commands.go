package main

import (
	"fmt"

	"github.com/relist-market/backend/internal/database"
	"github.com/relist-market/backend/internal/models"
	"github.com/spf13/cobra"
)

var promoteAdminCmd = &cobra.Command{
	Use:   "promote-admin <email>",
	Short: "Grant admin rights to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var user models.User
		if err := database.DB.Where("LOWER(email) = LOWER(?)", args[0]).First(&user).Error; err != nil {
			return fmt.Errorf("no account with email %s", args[0])
		}
		if user.IsAdmin {
			fmt.Printf("%s is already an admin\n", user.Email)
			return nil
		}
		if err := database.DB.Model(&user).Update("is_admin", true).Error; err != nil {
			return err
		}
		fmt.Printf("Promoted %s (%s) to admin\n", user.Email, user.Username)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print marketplace counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		counts := map[string]interface{}{
			"users":    &models.User{},
			"items":    &models.Item{},
			"comments": &models.Comment{},
			"likes":    &models.Like{},
		}
		for name, model := range counts {
			var n int64
			if err := database.DB.Model(model).Count(&n).Error; err != nil {
				return err
			}
			fmt.Printf("%-10s %d\n", name, n)
		}

		var sold int64
		if err := database.DB.Model(&models.Item{}).Where("sold = true").Count(&sold).Error; err != nil {
			return err
		}
		fmt.Printf("%-10s %d\n", "sold", sold)
		return nil
	},
}

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Rebuild cached like and comment counts from source rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		statements := []string{
			`UPDATE items SET like_count = (
				SELECT COUNT(*) FROM likes
				WHERE likes.target_type = 'item' AND likes.target_id = items.id
			)`,
			`UPDATE comments SET like_count = (
				SELECT COUNT(*) FROM likes
				WHERE likes.target_type = 'comment' AND likes.target_id = comments.id
			)`,
			`UPDATE items SET comment_count = (
				SELECT COUNT(*) FROM comments
				WHERE comments.item_id = items.id AND comments.is_deleted = false
			)`,
		}
		for _, stmt := range statements {
			if err := database.DB.Exec(stmt).Error; err != nil {
				return err
			}
		}
		fmt.Println("Cached counters rebuilt")
		return nil
	},
}
