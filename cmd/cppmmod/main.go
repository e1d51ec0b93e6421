// Command cppmmod is the server's composition root: it parses flags, loads
// config, wires every component spec.md names, and runs until a termination
// signal arrives. Grounded on CharGiway-miniarena/main.go's flag-parse +
// wire + signal.Notify shape, generalized from the teacher's single-room HTTP
// server to the full listener/ingress/simcore/admin/chat/auth stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ArsnDev/CppMMO/internal/admin"
	"github.com/ArsnDev/CppMMO/internal/authclient"
	"github.com/ArsnDev/CppMMO/internal/chat"
	"github.com/ArsnDev/CppMMO/internal/command"
	"github.com/ArsnDev/CppMMO/internal/config"
	"github.com/ArsnDev/CppMMO/internal/ingress"
	"github.com/ArsnDev/CppMMO/internal/listener"
	"github.com/ArsnDev/CppMMO/internal/logging"
	"github.com/ArsnDev/CppMMO/internal/session"
	"github.com/ArsnDev/CppMMO/internal/simcore"
)

func main() {
	var (
		addr           string
		ioThreads      int
		logicThreads   int
		serverConfig   string
		gameConfig     string
		maxConnections int
		natsURL        string
		adminAddr      string
		logFile        string
	)
	flag.StringVar(&addr, "port", ":7777", "game server listen address, e.g. :7777")
	flag.IntVar(&ioThreads, "io-threads", 4, "ingress worker pool size")
	flag.IntVar(&logicThreads, "logic-threads", 1, "reserved; the simulation core runs on one dedicated goroutine")
	flag.StringVar(&serverConfig, "server-config", "config/server_config.json", "path to server_config.json")
	flag.StringVar(&gameConfig, "game-config", "config/game_config.json", "path to game_config.json")
	flag.IntVar(&maxConnections, "max-connections", listener.DefaultMaxConnections, "overrides MAX_CONCURRENT_CONNECTIONS")
	flag.StringVar(&natsURL, "nats-url", "nats://127.0.0.1:4222", "chat broker address")
	flag.StringVar(&adminAddr, "admin-addr", ":9090", "admin/metrics HTTP listen address")
	flag.StringVar(&logFile, "log-file", "app.log", "log file path")
	flag.Parse()

	log, syncLog, err := logging.New(logging.DefaultOptions(logFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging init: %v\n", err)
		os.Exit(1)
	}
	defer syncLog()

	loader := config.NewFileLoader()
	simCfg := simcore.DefaultConfig()
	if gc, err := loader.LoadGameConfig(gameConfig); err != nil {
		log.Warnw("game config not loaded; using defaults", "path", gameConfig, "error", err)
	} else {
		applyGameConfig(&simCfg, gc)
	}

	var authServiceURL string
	if sc, err := loader.LoadServerConfig(serverConfig); err != nil {
		log.Warnw("server config not loaded; auth disabled", "path", serverConfig, "error", err)
	} else {
		authServiceURL = sc.AuthServiceURL()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	commandQueue := command.NewQueue(func(cmd command.Command) {
		log.Warnw("dropping command pushed after shutdown", "senderSessionId", cmd.SenderSessionID)
	})
	registry := session.NewRegistry(commandQueue)

	core := simcore.New(simCfg, commandQueue, registry, log)

	var authClient authclient.Client
	if authServiceURL != "" {
		authClient = authclient.NewHTTPClient(authServiceURL, 5*time.Second, log)
	}
	authHandler := authclient.NewHandler(authClient, log)

	var chatBridge *chat.Bridge
	if bridge, err := chat.Connect(natsURL, registry, log); err != nil {
		log.Warnw("chat broker unavailable; chat disabled", "url", natsURL, "error", err)
	} else {
		chatBridge = bridge
		if err := chatBridge.Start(); err != nil {
			log.Errorw("chat broker subscribe failed; chat disabled", "error", err)
			chatBridge.Close()
			chatBridge = nil
		}
	}

	ingressPool := ingress.New(ioThreads, 1024, commandQueue, registry, log, authHandler.Handle, chatHandlerFunc(chatBridge))
	ingressPool.Start()

	tcpListener := listener.New(addr, maxConnections, registry, log, ingressPool.Submit, nil)

	adminServer := admin.New(adminAddr, core, commandQueue, log)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if err := core.Run(ctx); err != nil {
			log.Errorw("simulation core exited with error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := tcpListener.Run(ctx); err != nil {
			log.Errorw("listener exited with error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := adminServer.Run(ctx); err != nil {
			log.Errorw("admin server exited with error", "error", err)
		}
	}()

	log.Infow("cppmmod started", "addr", addr, "adminAddr", adminAddr, "maxConnections", maxConnections)

	<-ctx.Done()
	log.Infow("shutdown signal received")

	ingressPool.Stop()
	commandQueue.Shutdown()
	if chatBridge != nil {
		chatBridge.Close()
	}

	wg.Wait()
	log.Infow("cppmmod stopped")
}

func applyGameConfig(dst *simcore.Config, gc config.GameConfig) {
	if gc.Gameplay.TickRate > 0 {
		dst.TickRate = gc.Gameplay.TickRate
	}
	if gc.Gameplay.AOIRange > 0 {
		dst.AOIRange = gc.Gameplay.AOIRange
	}
	if gc.Gameplay.ChatRange > 0 {
		dst.ChatRange = gc.Gameplay.ChatRange
	}
	if gc.Gameplay.MoveSpeed > 0 {
		dst.MoveSpeed = gc.Gameplay.MoveSpeed
	}
	if gc.Map.Width > 0 {
		dst.MapWidth = gc.Map.Width
	}
	if gc.Map.Height > 0 {
		dst.MapHeight = gc.Map.Height
	}
	if gc.Performance.CommandBatchSize > 0 {
		dst.CommandBatchSize = gc.Performance.CommandBatchSize
	}
}

func chatHandlerFunc(bridge *chat.Bridge) ingress.ChatHandler {
	if bridge == nil {
		return nil
	}
	return bridge.Handle
}
