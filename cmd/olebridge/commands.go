package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/indexdata/olebridge/app"
	"github.com/indexdata/olebridge/common"
	"github.com/indexdata/olebridge/driver"
	"github.com/indexdata/olebridge/vcs"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	cfgFile  string
	patronId string
)

var rootCmd = &cobra.Command{
	Use:   "olebridge",
	Short: "Bridge between a library front end and the OLE ILS",
	Long: `olebridge serves patron, circulation and catalogue operations backed by
the OLE circulation and docstore services and the OLE patron database.

Without a subcommand it starts the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			app.OLE_CONFIG = cfgFile
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "driver configuration file (default $OLE_CONFIG or ole.toml)")
	rootCmd.AddCommand(serveCmd, versionCmd, configCmd, loginCmd, profileCmd, transactionsCmd, finesCmd,
		holdsCmd, statusCmd, holdingCmd, placeHoldCmd, renewCmd, pickUpLocationsCmd)
	holdingCmd.Flags().StringVar(&patronId, "patron", "", "patron id; items are holdable only for a patron")
	placeHoldCmd.Flags().StringVar(&patronId, "patron", "", "patron id")
	renewCmd.Flags().StringVar(&patronId, "patron", "", "patron id")
	_ = placeHoldCmd.MarkFlagRequired("patron")
	_ = renewCmd.MarkFlagRequired("patron")
}

func printJson(w io.Writer, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(buf))
	return err
}

// withDriver runs fn against a driver initialised from the configuration file.
func withDriver(cmd *cobra.Command, fn func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error)) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	ctx := common.CreateExtCtxWithArgs(cmd.Context(), &common.LoggerArgs{Other: map[string]string{"command": cmd.Name()}})
	d, err := driver.Init(ctx, cfg, app.MAX_RESPONSE_SIZE)
	if err != nil {
		return err
	}
	defer d.Close()
	res, err := fn(ctx, d)
	if err != nil {
		return err
	}
	return printJson(cmd.OutOrStdout(), res)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), vcs.GetSignature())
	},
}

var configCmd = &cobra.Command{
	Use:   "config <section>",
	Short: "Print a configuration section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		section, ok := cfg.Section(args[0])
		if !ok {
			return fmt.Errorf("no configuration for %s", args[0])
		}
		return printJson(cmd.OutOrStdout(), section)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <barcode> <login>",
	Short: "Authenticate a patron against the patron database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			p, err := d.PatronLogin(ctx, args[0], args[1])
			if err == nil && p == nil {
				return nil, fmt.Errorf("login failed")
			}
			return p, err
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <patron-id>",
	Short: "Show a patron profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			return d.GetMyProfile(ctx, driver.Patron{Id: args[0]})
		})
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <patron-id>",
	Short: "List checked out items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			return d.GetMyTransactions(ctx, driver.Patron{Id: args[0]})
		})
	},
}

var finesCmd = &cobra.Command{
	Use:   "fines <patron-id>",
	Short: "List fines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			return d.GetMyFines(ctx, driver.Patron{Id: args[0]})
		})
	},
}

var holdsCmd = &cobra.Command{
	Use:   "holds <patron-id>",
	Short: "List holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			return d.GetMyHolds(ctx, driver.Patron{Id: args[0]})
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <bib-id>...",
	Short: "Show item status for one or more records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			if len(args) == 1 {
				return d.GetStatus(ctx, args[0])
			}
			return d.GetStatuses(ctx, args)
		})
	},
}

var holdingCmd = &cobra.Command{
	Use:   "holding <bib-id>",
	Short: "Show holdings of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			var p *driver.Patron
			if patronId != "" {
				p = &driver.Patron{Id: patronId}
			}
			return d.GetHolding(ctx, args[0], p)
		})
	},
}

var placeHoldCmd = &cobra.Command{
	Use:   "place-hold <bib-id> <item-barcode>",
	Short: "Place a page/hold request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			return d.PlaceHold(ctx, driver.HoldDetails{
				Patron:  driver.Patron{Id: patronId},
				Id:      args[0],
				Barcode: args[1],
			})
		})
	},
}

var renewCmd = &cobra.Command{
	Use:   "renew <item-barcode>[,<bib-id>]...",
	Short: "Renew checked out items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			details := make([]string, 0, len(args))
			for _, arg := range args {
				details = append(details, strings.TrimSpace(arg))
			}
			return d.RenewMyItems(ctx, driver.RenewDetails{Patron: driver.Patron{Id: patronId}, Details: details})
		})
	},
}

var pickUpLocationsCmd = &cobra.Command{
	Use:   "pickup-locations",
	Short: "List pick up locations and the default",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDriver(cmd, func(ctx common.ExtendedContext, d *driver.OleDriver) (any, error) {
			return map[string]any{
				"locations": d.GetPickUpLocations(nil),
				"default":   d.GetDefaultPickUpLocation(nil),
			}, nil
		})
	},
}
