package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nfrund/amruno/internal/database"
	"github.com/nfrund/amruno/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var usersOutputFormat string

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect registered users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered users",
	Long: `List every registered account.

Examples:
  amruno users list                 # table format
  amruno users list --format json   # JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if usersOutputFormat != "table" && usersOutputFormat != "json" {
			return fmt.Errorf("invalid format %q: use table or json", usersOutputFormat)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		stores, err := database.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer stores.Close(ctx)

		users, err := stores.Users.ListExcept(ctx, "")
		if err != nil {
			return err
		}
		return writeUsers(cmd.OutOrStdout(), usersOutputFormat, users)
	},
}

func writeUsers(w io.Writer, format string, users []*domain.User) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if users == nil {
			users = []*domain.User{}
		}
		return enc.Encode(users)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Mobile", "Name", "Gender"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, u := range users {
		table.Append([]string{u.ID, u.MobileNumber, u.FullName, u.Gender})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d user(s)\n", len(users))
	return nil
}

func init() {
	usersListCmd.Flags().StringVarP(&usersOutputFormat, "format", "f", "table", "output format: table or json")
	usersCmd.AddCommand(usersListCmd)
	rootCmd.AddCommand(usersCmd)
}
