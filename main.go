package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"poker-table-client/api"
	"poker-table-client/auth"
	"poker-table-client/autoplay"
	"poker-table-client/config"
	"poker-table-client/identity"
	"poker-table-client/loghandler"
	"poker-table-client/session"
	"poker-table-client/ws"
)

func main() {
	var (
		configPath = flag.String("config", "config.json", "path to an optional JSON config file")
		tableID    = flag.String("table", "", "table id to join")
		create     = flag.Bool("create", false, "create a new table and host it")
		name       = flag.String("name", "", "display name")
		auto       = flag.Bool("auto", false, "let the autopilot play")
		user       = flag.String("user", "", "log in as this user before playing")
		password   = flag.String("password", "", "password for -user")
		register   = flag.Bool("register", false, "register -user instead of logging in")
		logout     = flag.Bool("logout", false, "forget the saved login and hosted table, then exit")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found; using environment variables", "tag", "main")
	}

	cfg := config.LoadFile(*configPath)
	logger := slog.New(loghandler.NewCompactHandler(os.Stderr, loghandler.ParseLevel(cfg.LogLevel)))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids := identity.Open(ctx, cfg.IdentityStore, logger)
	defer ids.Close()

	if *logout {
		ids.Logout(ctx)
		pterm.Success.Println("Logged out.")
		return
	}

	client := api.NewClient(cfg.APIBaseURL, logger)
	displayName, err := authenticate(ctx, client, ids, cfg, *user, *password, *register)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	if *name != "" {
		displayName = *name
	}
	ident := ids.GetOrCreate(ctx)
	if displayName == "" && ident.DisplayName == "" {
		displayName, _ = pterm.DefaultInteractiveTextInput.Show("Display name")
	}
	if strings.TrimSpace(displayName) != "" {
		if ident, err = ids.SetDisplayName(ctx, displayName); err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
	}
	pterm.Info.Printfln("Playing as %s (%s)", ident.DisplayName, ident.ParticipantID)

	var header http.Header
	if client.Token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + client.Token}}
	}
	adapter := ws.NewAdapter(ws.Options{
		URL:              cfg.ServerURL,
		Header:           header,
		SendQueueSize:    cfg.SendQueueSize,
		MaxMessageSize:   cfg.MaxMessageBytes,
		WriteWait:        cfg.WriteWait(),
		PongWait:         cfg.PongWait(),
		ReconnectInitial: cfg.ReconnectInitial(),
		ReconnectMax:     cfg.ReconnectMax(),
		ReconnectWindow:  cfg.ReconnectWindow(),
	}, logger)

	sess := session.New(cfg, ids, adapter, logger)
	updates := sess.Updates()
	if err := sess.Start(ctx); err != nil {
		pterm.Error.Printfln("Cannot reach %s: %v", cfg.ServerURL, err)
		os.Exit(1)
	}
	defer sess.Close()

	if err := enterTable(ctx, sess, client, ident.DisplayName, *tableID, *create); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}

	if *auto || cfg.Autoplay.Enabled {
		go autoplay.Run(ctx, sess, cfg.Autoplay, logger)
		watch(ctx, updates, sess)
		return
	}
	play(ctx, updates, sess)
}

// authenticate logs in when credentials are given, otherwise reuses the saved
// token. It returns the display name carried by the token, if any.
func authenticate(ctx context.Context, client *api.Client, ids *identity.Store, cfg *config.Config, user, password string, register bool) (string, error) {
	if user != "" {
		creds := api.Credentials{Username: user, Password: password}
		var (
			resp api.AuthResponse
			err  error
		)
		if register {
			resp, err = client.Register(ctx, creds)
		} else {
			resp, err = client.Login(ctx, creds)
		}
		if err != nil {
			return "", err
		}
		ids.SetToken(ctx, resp.Token)
		return resp.Username, nil
	}

	token := ids.Token(ctx)
	if token == "" {
		return "", nil
	}
	claims, err := auth.ParseClaims(token)
	if err != nil || auth.Expired(claims, time.Now()) {
		slog.Warn("saved login is no longer valid", "tag", "main", "err", err)
		ids.SetToken(ctx, "")
		return "", nil
	}
	if cfg.AuthJWKSURL != "" {
		if claims, err = auth.ValidateToken(cfg.AuthJWKSURL, token); err != nil {
			slog.Warn("saved login failed verification", "tag", "main", "err", err)
			ids.SetToken(ctx, "")
			return "", nil
		}
	}
	client.Token = token
	return auth.DisplayNameFromClaims(claims), nil
}

func enterTable(ctx context.Context, sess *session.Session, client *api.Client, name, tableID string, create bool) error {
	if !create && tableID == "" {
		choice, err := pterm.DefaultInteractiveSelect.WithOptions([]string{"create a table", "join a table"}).Show()
		if err != nil {
			return err
		}
		if choice == "create a table" {
			create = true
		} else {
			tableID, _ = pterm.DefaultInteractiveTextInput.Show("Table id")
		}
	}
	if !create {
		return sess.JoinGame(strings.TrimSpace(tableID))
	}
	if client.Token != "" {
		resp, err := client.CreateGame(ctx, name)
		if err == nil {
			pterm.Success.Printfln("Created table %s", resp.GameID)
			return sess.HostTable(resp.GameID, resp.PlayerID)
		}
		if !errors.Is(err, api.ErrUnauthorized) {
			return err
		}
		slog.Warn("REST create rejected, creating over the channel", "tag", "main", "err", err)
	}
	return sess.CreateGame()
}

// watch only renders; the autopilot does the playing.
func watch(ctx context.Context, updates <-chan struct{}, sess *session.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			render(sess.View())
		}
	}
}

func play(ctx context.Context, updates <-chan struct{}, sess *session.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
		}
		v := sess.View()
		render(v)
		if !v.Eligibility.Any() && !v.CanDealNewHand {
			continue
		}
		if !prompt(sess, v) {
			return
		}
	}
}
