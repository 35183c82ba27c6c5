package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

var userAdmin bool

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage known callers",
}

var usersAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Register a caller",
	Long: `Registers a caller id as established by the upstream identity provider.
Use --admin to grant the admin role, which allows managing system documents.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersAdd,
}

func init() {
	usersAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant the admin role")
	usersCmd.AddCommand(usersAddCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	if userService == nil {
		return fmt.Errorf("users: %w", errNotWired)
	}
	id := strings.TrimSpace(args[0])
	if id == "" {
		return fmt.Errorf("user id must not be blank")
	}

	user := &storage.UserRecord{ID: id, Role: storage.RoleUser}
	if userAdmin {
		user.Role = storage.RoleAdmin
	}
	if err := userService.Create(cmd.Context(), user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	cmd.Printf("Created %s %s\n", user.Role, user.ID)
	return nil
}
