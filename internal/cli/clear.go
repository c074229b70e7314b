package cli

import (
	"fmt"

	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"github.com/spf13/cobra"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the persisted cart",
		Long: `Overwrite the persisted cart record with an empty cart.

A running service keeps its in-memory cart until it restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecords(cmd.Context(), rootOpts, func(records store.RecordStore) error {
				data, err := store.EncodeRecord(nil)
				if err != nil {
					return err
				}
				if err := records.Save(cmd.Context(), store.RecordName, data); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.RecordName)
				return err
			})
		},
	}
}
