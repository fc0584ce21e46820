package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pinpoint-go/internal/app"
	"pinpoint-go/internal/config"
	"pinpoint-go/internal/model"
	"pinpoint-go/internal/world"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Save", "Sync").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// reportPartial prints step-level failures from a best-effort operation and
// returns nil so the command exits cleanly, or passes other errors through.
func reportPartial(err error) error {
	var pe *world.PartialError
	if errors.As(err, &pe) {
		fmt.Printf("completed with %d failed step(s):\n", len(pe.Steps))
		for _, s := range pe.Steps {
			fmt.Printf("  %s: %v\n", s.Step, s.Err)
		}
		return nil
	}
	return err
}

// promptPIN reads a PIN from the terminal without echoing it.
func promptPIN() (string, error) {
	fmt.Fprint(os.Stderr, "PIN (empty for none): ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading PIN: %w", err)
	}
	return string(b), nil
}

// printPending surfaces any action the registry queued for the user.
func printPending(a *app.App) {
	p := a.TakePending()
	switch p.Kind {
	case model.PendingNone:
		return
	case model.PendingNeedsPIN:
		fmt.Printf("world %q requires a PIN before opening\n", p.RoomName)
	case model.PendingCollaborationChoice:
		fmt.Printf("world %q: choose whether to join the collaborative session\n", p.RoomName)
	case model.PendingAcceptShare:
		fmt.Printf("world %q: share invitation awaiting acceptance\n", p.RoomName)
	case model.PendingOpenOrSave:
		fmt.Printf("world %q: open now or keep for later\n", p.RoomName)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pinpoint",
	Short: "Spatial map sync and sharing tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init OWNER_NAME",
	Short: "Initialize configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(args[0], defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Owner:    %s\n", cfg.OwnerName)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Owner:    %s\n", cfg.OwnerName)
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Remote:   %s\n", cfg.Remote.Type)
		fmt.Printf("Search:   %s\n", cfg.Search.Type)
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the world list with the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		worlds, err := a.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("Synced %d world(s)\n", len(worlds))
		printPending(a)
		return nil
	},
}

// world command
var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "Manage worlds",
}

var worldListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known worlds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListWorlds")
		if err != nil {
			return err
		}
		defer a.Close()

		worlds, err := a.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		if len(worlds) == 0 {
			fmt.Println("No worlds found.")
			return nil
		}

		for _, w := range worlds {
			var flags string
			if w.IsCollaborative {
				flags += "C"
			}
			if !w.Synced {
				flags += "*"
			}
			fmt.Printf("%-30s  %s  %s\n", w.Name, w.LastModified.Format("2006-01-02 15:04:05"), flags)
		}
		return nil
	},
}

var worldSaveCmd = &cobra.Command{
	Use:   "save NAME MAP_FILE",
	Short: "Save a world's map data",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		thumbPath, _ := cmd.Flags().GetString("thumbnail")

		a, err := newApp(cmd, "Save")
		if err != nil {
			return err
		}
		defer a.Close()

		mapData, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading map file: %w", err)
		}

		var thumbnail []byte
		if thumbPath != "" {
			thumbnail, err = os.ReadFile(thumbPath)
			if err != nil {
				return fmt.Errorf("reading thumbnail: %w", err)
			}
		}

		if err := a.Save(cmd.Context(), args[0], mapData, thumbnail); err != nil {
			return fmt.Errorf("saving world: %w", err)
		}

		fmt.Printf("Saved world %q\n", args[0])
		return nil
	},
}

var worldRenameCmd = &cobra.Command{
	Use:   "rename OLD_NAME NEW_NAME",
	Short: "Rename a world",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Rename")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		if err := a.Rename(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("renaming world: %w", err)
		}

		fmt.Printf("Renamed %q to %q\n", args[0], args[1])
		return nil
	},
}

var worldDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a world everywhere",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		if err := a.Delete(cmd.Context(), args[0]); err != nil {
			return reportPartial(err)
		}

		fmt.Printf("Deleted world %q\n", args[0])
		return nil
	},
}

var worldImportCmd = &cobra.Command{
	Use:   "import FILE NAME",
	Short: "Import an external map file as a new world",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Import")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		if err := a.Import(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("importing world: %w", err)
		}

		fmt.Printf("Imported %s as %q\n", args[0], args[1])
		return nil
	},
}

// anchor command
var anchorCmd = &cobra.Command{
	Use:   "anchor",
	Short: "Manage anchors",
}

var anchorListCmd = &cobra.Command{
	Use:   "list WORLD",
	Short: "List a world's anchors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListAnchors")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		names, err := a.AnchorNames(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No anchors.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var anchorPendingCmd = &cobra.Command{
	Use:   "pending WORLD",
	Short: "Count collaborator anchors awaiting integration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "PendingAnchors")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		count, err := a.PendingAnchorCount(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%d pending anchor(s)\n", count)
		return nil
	},
}

var anchorAddCmd = &cobra.Command{
	Use:   "add WORLD NAME",
	Short: "Stage an anchor against a published world",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		transformPath, _ := cmd.Flags().GetString("transform-file")

		a, err := newApp(cmd, "AddAnchor")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		var transform [64]byte
		if transformPath != "" {
			data, err := os.ReadFile(transformPath)
			if err != nil {
				return fmt.Errorf("reading transform: %w", err)
			}
			if len(data) != len(transform) {
				return fmt.Errorf("transform file must be exactly %d bytes, got %d", len(transform), len(data))
			}
			copy(transform[:], data)
		}

		if err := a.AddAnchor(cmd.Context(), args[0], args[1], transform); err != nil {
			return fmt.Errorf("adding anchor: %w", err)
		}

		fmt.Printf("Staged anchor %q on world %q\n", args[1], args[0])
		return nil
	},
}

// share command
var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Publish and share worlds",
}

var sharePublishCmd = &cobra.Command{
	Use:   "publish WORLD",
	Short: "Publish a world to the public zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Publish")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		pin, err := promptPIN()
		if err != nil {
			return err
		}

		if err := a.Publish(cmd.Context(), args[0], pin); err != nil {
			if errors.Is(err, world.ErrNeverSynced) {
				return fmt.Errorf("world %q has never been uploaded; save it first", args[0])
			}
			return fmt.Errorf("publishing world: %w", err)
		}

		fmt.Printf("Published world %q\n", args[0])
		return nil
	},
}

var shareLinkCmd = &cobra.Command{
	Use:   "link WORLD",
	Short: "Create or fetch the share URL for a world",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ShareLink")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		url, err := a.ShareLink(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("creating share link: %w", err)
		}

		fmt.Println(url)
		return nil
	},
}

var shareAcceptCmd = &cobra.Command{
	Use:   "accept URL",
	Short: "Accept a share invitation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "AcceptShare")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("loading worlds: %w", err)
		}

		if err := a.AcceptShare(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("accepting share: %w", err)
		}

		fmt.Println("Share accepted")
		printPending(a)
		return nil
	},
}

var shareLinksCmd = &cobra.Command{
	Use:   "links",
	Short: "List known shared links",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SharedLinks")
		if err != nil {
			return err
		}
		defer a.Close()

		links, err := a.SharedLinks()
		if err != nil {
			return err
		}

		if len(links) == 0 {
			fmt.Println("No shared links.")
			return nil
		}
		for _, l := range links {
			fmt.Printf("%-30s  owner=%s\n", l.RoomName, l.OwnerName)
		}
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Search world and anchor names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Search")
		if err != nil {
			return err
		}
		defer a.Close()

		hits, err := a.Search(args[0])
		if err != nil {
			return err
		}

		if len(hits) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, h := range hits {
			if h.AnchorName == "" {
				fmt.Printf("world   %s\n", h.WorldName)
			} else {
				fmt.Printf("anchor  %s  (in %s)\n", h.AnchorName, h.WorldName)
			}
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	worldCmd.AddCommand(worldListCmd)
	worldCmd.AddCommand(worldSaveCmd)
	worldSaveCmd.Flags().StringP("thumbnail", "t", "", "PNG snapshot to store alongside the map")
	worldCmd.AddCommand(worldRenameCmd)
	worldCmd.AddCommand(worldDeleteCmd)
	worldCmd.AddCommand(worldImportCmd)

	anchorCmd.AddCommand(anchorListCmd)
	anchorCmd.AddCommand(anchorPendingCmd)
	anchorCmd.AddCommand(anchorAddCmd)
	anchorAddCmd.Flags().String("transform-file", "", "64-byte pose file (zero pose when omitted)")

	shareCmd.AddCommand(sharePublishCmd)
	shareCmd.AddCommand(shareLinkCmd)
	shareCmd.AddCommand(shareAcceptCmd)
	shareCmd.AddCommand(shareLinksCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(worldCmd)
	rootCmd.AddCommand(anchorCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(searchCmd)
}
