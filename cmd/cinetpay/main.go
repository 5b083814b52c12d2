// Command cinetpay drives the CinetPay checkout API from a terminal: it
// initializes payments, polls their status and inspects the stored records.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"cinetpay-checkout/internal/auth"
	"cinetpay-checkout/internal/cinetpay"
	"cinetpay-checkout/internal/config"
	"cinetpay-checkout/internal/logger"
	"cinetpay-checkout/internal/storage"

	"github.com/shopspring/decimal"
)

const usage = `usage: cinetpay <command> [flags]

commands:
  pay      initialize a payment and print the payment URL
  status   check the status of a transaction
  stored   print the stored latest payment, or a stored status with -id
  clear    remove stored records, all of them or one with -id
  token    issue a bridge access token signed with BRIDGE_JWT_SECRET
`

var errUsage = errors.New("invalid usage")

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogFile)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	if args[0] == "token" {
		return runToken(cfg, args[1:], stdout, stderr)
	}

	store, closer, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	client, err := newClient(cfg, store)
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "pay":
		return runPay(ctx, client, rest, stdout, stderr)
	case "status":
		return runStatus(ctx, client, rest, stdout, stderr)
	case "stored":
		return runStored(ctx, client, rest, stdout, stderr)
	case "clear":
		return runClear(ctx, client, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

func newClient(cfg *config.Config, store storage.Store) (*cinetpay.Client, error) {
	opts := []cinetpay.Option{cinetpay.WithTimeout(cfg.GatewayTimeout)}
	if cfg.CinetPayBaseURL != "" {
		opts = append(opts, cinetpay.WithBaseURL(cfg.CinetPayBaseURL))
	}
	return cinetpay.NewClient(cinetpay.MerchantOptions{
		APIKey:    cfg.CinetPayAPIKey,
		SiteID:    cfg.CinetPaySiteID,
		NotifyURL: cfg.CinetPayNotifyURL,
		ReturnURL: cfg.CinetPayReturnURL,
		Lang:      cinetpay.Lang(cfg.CinetPayLang),
	}, store, opts...)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func runPay(ctx context.Context, client *cinetpay.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("pay", stderr)
	txID := fs.String("id", "", "transaction id (generated when empty)")
	amount := fs.String("amount", "", "amount, in the currency's unit")
	currency := fs.String("currency", string(cinetpay.CurrencyXOF), "XOF, XAF, CDF or GNF")
	description := fs.String("description", "", "payment description")
	channels := fs.String("channels", string(cinetpay.ChannelAll), "ALL, MOBILE_MONEY or CREDIT_CARD")
	name := fs.String("customer-name", "", "customer first name")
	surname := fs.String("customer-surname", "", "customer last name")
	email := fs.String("customer-email", "", "customer email")
	phone := fs.String("customer-phone", "", "customer phone number")
	metadata := fs.String("metadata", "", "JSON object forwarded as metadata")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *email != "" && !cinetpay.IsValidEmail(*email) {
		return fmt.Errorf("%w: invalid customer email %q", cinetpay.ErrValidation, *email)
	}
	if *phone != "" && !cinetpay.IsValidPhoneNumber(*phone) {
		return fmt.Errorf("%w: invalid customer phone number %q", cinetpay.ErrValidation, *phone)
	}

	amt, err := decimal.NewFromString(strings.TrimSpace(*amount))
	if err != nil {
		return fmt.Errorf("%w: amount %q is not a number", cinetpay.ErrValidation, *amount)
	}

	opts := cinetpay.PaymentOptions{
		TransactionID:       *txID,
		Amount:              amt,
		Currency:            cinetpay.Currency(*currency),
		Description:         *description,
		Channels:            cinetpay.Channel(*channels),
		CustomerName:        *name,
		CustomerSurname:     *surname,
		CustomerEmail:       *email,
		CustomerPhoneNumber: *phone,
	}
	if opts.TransactionID == "" {
		opts.TransactionID = cinetpay.GenerateTransactionID()
	}
	if *metadata != "" {
		if err := json.Unmarshal([]byte(*metadata), &opts.Metadata); err != nil {
			return fmt.Errorf("%w: metadata must be a JSON object: %v", cinetpay.ErrValidation, err)
		}
	}

	req, err := cinetpay.NewPaymentRequest(opts)
	if err != nil {
		return err
	}

	res, err := client.MakePayment(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "transaction_id: %s\n", req.TransactionID())
	return printJSON(stdout, res)
}

func runStatus(ctx context.Context, client *cinetpay.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("status", stderr)
	txID := fs.String("id", "", "transaction id or payment token")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	res, err := client.CheckPayStatus(ctx, *txID)
	if err != nil {
		return err
	}
	return printJSON(stdout, res)
}

func runStored(ctx context.Context, client *cinetpay.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("stored", stderr)
	txID := fs.String("id", "", "print the stored status of this transaction")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		rec any
		err error
	)
	if *txID == "" {
		var p *cinetpay.LatestPayment
		p, err = client.StoredPaymentData(ctx)
		if p != nil {
			rec = p
		}
	} else {
		var st *cinetpay.StoredStatus
		st, err = client.StoredPaymentStatus(ctx, *txID)
		if st != nil {
			rec = st
		}
	}
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Fprintln(stdout, "no stored record")
		return nil
	}
	return printJSON(stdout, rec)
}

func runClear(ctx context.Context, client *cinetpay.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("clear", stderr)
	txID := fs.String("id", "", "only remove the stored status of this transaction")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *txID != "" {
		if err := client.ClearPaymentDataForTransaction(ctx, *txID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "cleared %s\n", *txID)
		return nil
	}

	if err := client.ClearStoredPaymentData(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "cleared all records")
	return nil
}

func runToken(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("token", stderr)
	subject := fs.String("sub", "", "caller identity, e.g. a terminal id")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *subject == "" {
		fmt.Fprintln(stderr, "token: -sub is required")
		return errUsage
	}

	token, err := auth.IssueToken(cfg.JWTSecret, *subject, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
