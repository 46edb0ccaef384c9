package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/heraerp/heraerp-prd-sub011/internal/cli/formatter"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/service"
)

func newTxnCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "txn",
		Aliases: []string{"transaction"},
		Short:   "Record and inspect transactions",
	}
	cmd.AddCommand(
		newTxnCreateCmd(app),
		newTxnListCmd(app),
		newTxnLinesCmd(app),
	)
	return cmd
}

// parseLine parses "description:quantity:unit_price". The description may
// itself contain colons; quantity and price are taken from the right.
func parseLine(raw string) (*domain.TransactionLine, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid line %q: want description:quantity:price", raw)
	}
	n := len(parts)
	qty, err := decimal.NewFromString(parts[n-2])
	if err != nil {
		return nil, fmt.Errorf("invalid quantity in line %q: %w", raw, err)
	}
	price, err := decimal.NewFromString(parts[n-1])
	if err != nil {
		return nil, fmt.Errorf("invalid price in line %q: %w", raw, err)
	}
	return &domain.TransactionLine{
		Description: strings.Join(parts[:n-2], ":"),
		Quantity:    qty,
		UnitPrice:   price,
	}, nil
}

func newTxnCreateCmd(app *App) *cobra.Command {
	var org, txnType, number, date, currency, smartCode, reference, status string
	var lineSpecs []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a transaction with its lines",
		Example: `  hera txn create --org MARIO --type sale \
    --line "Margherita:2:12.50" --line "Espresso:1:3"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := resolveOrgID(ctx, app, org)
			if err != nil {
				return err
			}

			lines := make([]*domain.TransactionLine, 0, len(lineSpecs))
			for _, ls := range lineSpecs {
				l, err := parseLine(ls)
				if err != nil {
					return err
				}
				lines = append(lines, l)
			}

			txn := &domain.Transaction{
				OrganizationID:    orgID,
				TransactionType:   txnType,
				TransactionNumber: number,
				Currency:          strings.ToUpper(currency),
				SmartCode:         smartCode,
				Status:            domain.TransactionStatus(status),
			}
			if date != "" {
				d, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
				txn.TransactionDate = d
			}
			if reference != "" {
				refID, err := resolveEntityID(ctx, app, orgID, reference)
				if err != nil {
					return err
				}
				txn.ReferenceEntityID = &refID
			}

			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			if err := data.CreateTransaction(ctx, txn, lines); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s  %s  %d lines\n",
				txn.TransactionType, txn.TransactionNumber, formatter.Money(txn.TotalAmount, txn.Currency), len(lines))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVar(&txnType, "type", "", "Transaction type, e.g. sale")
	cmd.Flags().StringVar(&number, "number", "", "Transaction number (generated when empty)")
	cmd.Flags().StringVar(&date, "date", "", "Transaction date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&currency, "currency", "USD", "ISO currency code")
	cmd.Flags().StringVar(&smartCode, "smart-code", "", "Smart code of the transaction")
	cmd.Flags().StringVar(&reference, "ref", "", "Reference entity ID, e.g. the customer")
	cmd.Flags().StringVar(&status, "status", string(domain.TransactionDraft), "Status: draft, pending, confirmed, cancelled")
	cmd.Flags().StringArrayVar(&lineSpecs, "line", nil, "Line as description:quantity:price (repeatable)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newTxnListCmd(app *App) *cobra.Command {
	var org, txnType string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := resolveOrgID(ctx, app, org)
			if err != nil {
				return err
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			txns, err := data.GetTransactions(ctx, orgID, txnType, limit)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No transactions."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTransactions(txns))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVar(&txnType, "type", "", "Only list this transaction type")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows (0 for all)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

// findTransaction matches an ID first, then a transaction number within the
// organization.
func findTransaction(ctx context.Context, data *service.LocalDataService, orgID, input string) (*domain.Transaction, error) {
	if t, err := data.GetTransaction(ctx, input); err == nil && t.OrganizationID == orgID {
		return t, nil
	}
	txns, err := data.GetTransactions(ctx, orgID, "", 0)
	if err != nil {
		return nil, err
	}
	for _, t := range txns {
		if t.TransactionNumber == input {
			return t, nil
		}
	}
	return nil, fmt.Errorf("transaction not found: %q", input)
}

func newTxnLinesCmd(app *App) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "lines <transaction-number-or-id>",
		Short: "Show the lines of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := resolveOrgID(ctx, app, org)
			if err != nil {
				return err
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			txn, err := findTransaction(ctx, data, orgID, args[0])
			if err != nil {
				return err
			}
			lines, err := data.GetTransactionLines(ctx, txn.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  %s\n", formatter.Bold(txn.TransactionNumber), txn.TransactionType,
				formatter.Money(txn.TotalAmount, txn.Currency))
			if len(lines) == 0 {
				fmt.Fprintln(out, formatter.Dim("No lines."))
				return nil
			}
			fmt.Fprint(out, formatter.FormatLines(lines))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
