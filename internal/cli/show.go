package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Format string
}

// CartSummary is the printed form of the persisted cart.
type CartSummary struct {
	Record     string        `json:"record" yaml:"record"`
	TotalItems int           `json:"total_items" yaml:"total_items"`
	TotalPrice int64         `json:"total_price" yaml:"total_price"`
	Items      []SummaryItem `json:"items" yaml:"items"`
}

type SummaryItem struct {
	ProductID string `json:"product_id" yaml:"product_id"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Quantity  int    `json:"quantity" yaml:"quantity"`
	UnitPrice int64  `json:"unit_price" yaml:"unit_price"`
	Subtotal  int64  `json:"subtotal" yaml:"subtotal"`
	MaxStock  int    `json:"max_stock" yaml:"max_stock"`
	VendorID  string `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted cart",
		Long: `Print the cart record as last persisted by the service.

Examples:
  cart show
  cart show --format json
  cart show --config ./deploy/config.yaml --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return withRecords(cmd.Context(), opts.RootOptions, func(records store.RecordStore) error {
				items, err := readItems(cmd.Context(), records)
				if err != nil {
					return err
				}
				return writeSummary(cmd.OutOrStdout(), opts.Format, summarize(items))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	return cmd
}

func summarize(items []cart.LineItem) CartSummary {
	s := CartSummary{
		Record:     store.RecordName,
		TotalItems: cart.TotalItems(items),
		TotalPrice: cart.TotalPrice(items),
		Items:      make([]SummaryItem, 0, len(items)),
	}
	for _, item := range items {
		s.Items = append(s.Items, SummaryItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
			MaxStock:  item.MaxStock,
			VendorID:  item.VendorID,
		})
	}
	return s
}

func writeSummary(w io.Writer, format string, s CartSummary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, s)
	}
}

func writeText(w io.Writer, s CartSummary) error {
	if _, err := fmt.Fprintf(w, "record: %s\nitems: %d\n", s.Record, len(s.Items)); err != nil {
		return err
	}
	for _, item := range s.Items {
		line := fmt.Sprintf("- %s", item.ProductID)
		if item.Name != "" {
			line += " " + item.Name
		}
		line += fmt.Sprintf(" qty=%d unit=%s subtotal=%s max_stock=%d",
			item.Quantity, formatCents(item.UnitPrice), formatCents(item.Subtotal), item.MaxStock)
		if item.VendorID != "" {
			line += " vendor=" + item.VendorID
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total_items: %d\ntotal_price: %s\n", s.TotalItems, formatCents(s.TotalPrice))
	return err
}

// formatCents renders minor units as a decimal amount.
func formatCents(v int64) string {
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}
