package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [sql]",
	Short: "Check a SQL statement against the read-only safety rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlText := strings.Join(args, " ")
		res := validate.Validate(sqlText)
		if !res.Valid {
			return fmt.Errorf("%s", res.Err)
		}
		fmt.Printf("OK (%s)\n", res.StatementType)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
