package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/brimstone/logger"
	"github.com/go-yaml/yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/auth"
	"github.com/Tricked-dev/SolidVerdant/internal/cache"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
	"github.com/Tricked-dev/SolidVerdant/internal/surface"
	"github.com/Tricked-dev/SolidVerdant/internal/track"
)

var (
	log     = logger.New()
	version = "0.0.0"
)

type Config struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	RedirectPort int    `yaml:"redirect_port"`
	Port         string `yaml:"port"`
}

func configPath() string {
	return filepath.Join(xdg.ConfigHome, "solidverdant", "config.yaml")
}

func loadConfig() (Config, error) {
	return loadConfigFrom(configPath())
}

func loadConfigFrom(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("base_url", api.DefaultBaseURL)
	v.SetDefault("client_id", "")
	v.SetDefault("redirect_port", 52321)
	v.SetDefault("port", "8137")
	v.SetEnvPrefix("solidverdant")
	v.AutomaticEnv()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Write the defaults so the user can edit them there instead, then
		// read the file back like any other run so environment overrides
		// still apply.
		if err := saveConfigTo(path, Config{
			BaseURL:      api.DefaultBaseURL,
			RedirectPort: 52321,
			Port:         "8137",
		}); err != nil {
			return Config{}, err
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}
	return Config{
		BaseURL:      v.GetString("base_url"),
		ClientID:     v.GetString("client_id"),
		RedirectPort: v.GetInt("redirect_port"),
		Port:         v.GetString("port"),
	}, nil
}

func saveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, f, 0600)
}

// app wires one process worth of surfaces over the shared durable stores.
type app struct {
	cfg       Config
	kv        *store.SQLiteKV
	auth      *auth.Provider
	client    *api.Client
	settings  *store.SettingsStore
	snaps     *store.SnapshotStore
	opt       *store.OptimisticStore
	lookup    *cache.Cache
	selection *cache.Cache
	widget    *surface.WidgetStore
	bus       *surface.Bus
	rec       *track.Reconciler
	notif     *surface.NotificationController
	tile      *surface.TileController
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath, err := xdg.DataFile("solidverdant/state.db")
	if err != nil {
		return nil, err
	}
	kv, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, kv: kv}
	a.auth = auth.NewProvider(kv, cfg.BaseURL, cfg.ClientID, cfg.RedirectPort)
	a.client = api.NewClient(cfg.BaseURL, a.auth)
	a.settings = store.NewSettingsStore(kv)
	a.snaps = store.NewSnapshotStore(kv)
	a.opt = store.NewOptimisticStore(kv)
	a.lookup = cache.New(kv, cache.LookupTTL)
	a.selection = cache.New(kv, cache.SelectionTTL)
	a.widget = surface.NewWidgetStore(kv)
	a.bus = surface.NewBus()
	a.rec = track.NewReconciler(a.auth, a.client, a.opt, a.snaps, a.lookup)
	notifier := surface.LogNotifier{}
	a.notif = surface.NewNotificationController(a.client, notifier, a.snaps, a.settings, a.widget, a.bus)
	a.tile = surface.NewTileController(a.auth, a.client, a.rec, a.opt, a.snaps, a.settings, a.lookup, a.notif, a.widget, a.bus, notifier)
	return a, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		log.Debug("store close failed",
			log.Field("err", err),
		)
	}
}

// restoreNotification is the reboot path: re-adopt whatever the durable
// snapshot says before the first render, so pause/resume work in a fresh
// process.
func (a *app) restoreNotification() {
	snap, err := a.snaps.Load()
	if err != nil || snap == nil {
		return
	}
	projectName, taskName := a.lookup.ResolveNames(snap.OrganizationID, snap.ProjectID, snap.TaskID)
	a.notif.Restore(snap.Start, snap.EntryID, surface.TrackingInfo{
		OrganizationID: snap.OrganizationID,
		MemberID:       a.settings.MemberID(),
		ProjectID:      snap.ProjectID,
		TaskID:         snap.TaskID,
		ProjectName:    projectName,
		TaskName:       taskName,
		Description:    snap.Description,
	})
}

var rootCmd = &cobra.Command{
	Use:   "solidverdant",
	Short: "Track time on Solidtime from your terminal",
	Long: `SolidVerdant is a Solidtime client. It keeps a quick toggle, a status
notification, a widget page, and a dashboard consistent with the remote
active time entry through polling and optimistic local state.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp wraps a command body with app construction and teardown.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, args)
	}
}
