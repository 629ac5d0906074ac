// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/witong42/OpenSpore/pkg/agent"
	"github.com/witong42/OpenSpore/pkg/bus"
	"github.com/witong42/OpenSpore/pkg/channels"
	"github.com/witong42/OpenSpore/pkg/config"
	"github.com/witong42/OpenSpore/pkg/gateway"
	"github.com/witong42/OpenSpore/pkg/heartbeat"
	"github.com/witong42/OpenSpore/pkg/logger"
	"github.com/witong42/OpenSpore/pkg/memory"
	"github.com/witong42/OpenSpore/pkg/providers"
	"github.com/witong42/OpenSpore/pkg/skills"
	"github.com/witong42/OpenSpore/pkg/swarm"
)

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "gateway":
			runGateway()
			return
		case "think":
			runThink(args[1:])
			return
		case "version":
			fmt.Println("openspore dev")
			return
		case "help", "-h", "--help":
			usage()
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}

	runREPL()
}

func usage() {
	fmt.Print(`openspore - autonomous personal AI agent

Usage:
  openspore              interactive REPL
  openspore gateway      run channels, heartbeat and the WebSocket gateway
  openspore think TASK [--role ROLE]
                         one-shot task (also the sub-spore entrypoint)
  openspore version
`)
}

// buildAgent wires config, provider, memory, skills and the swarm into
// a ready agent. The memory store may be nil if opening fails; the
// agent degrades gracefully.
func buildAgent(cfg *config.Config) (*agent.Agent, *memory.Store) {
	workspace := cfg.WorkspacePath()
	os.MkdirAll(workspace, 0755)

	store, err := memory.Open(workspace, time.Duration(cfg.Memory.RecentWriteTTLSeconds)*time.Second)
	if err != nil {
		logger.ErrorCF("main", "memory unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		store = nil
	}

	swarm.Configure(cfg.Swarm.MaxSpores)
	manager := swarm.NewSwarmManager(time.Duration(cfg.Swarm.TimeoutSeconds) * time.Second)

	loader := skills.NewSkillLoader()
	skills.RegisterBuiltins(loader, workspace, store, manager, swarm.IsSpore())

	provider := providers.NewHTTPProvider(cfg.Providers.OpenRouter, cfg.Agents.Defaults)
	return agent.New(cfg, provider, loader, store), store
}

func loadConfig() *config.Config {
	path := os.Getenv("OPENSPORE_CONFIG")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runGateway() {
	cfg := loadConfig()
	logger.SetLogFile(cfg.WorkspacePath() + "/memory/openspore.log")

	a, store := buildAgent(cfg)
	if store != nil {
		defer store.Close()
	}

	msgBus := bus.NewMessageBus()
	gw := gateway.New(msgBus, a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan agent.AgentEvent, 256)
	a.SetObserver(events)
	gw.ObserveEvents(ctx, events)

	if cfg.Channels.Telegram.Enabled {
		tg, err := channels.NewTelegramChannel(cfg.Channels.Telegram, msgBus)
		if err != nil {
			logger.ErrorCF("main", "telegram init failed", map[string]interface{}{"error": err.Error()})
		} else if err := tg.Start(ctx); err != nil {
			logger.ErrorCF("main", "telegram start failed", map[string]interface{}{"error": err.Error()})
		} else {
			gw.RegisterChannel(tg)
			defer tg.Stop(ctx)
		}
	}

	if cfg.Channels.Discord.Enabled {
		dc, err := channels.NewDiscordChannel(cfg.Channels.Discord, msgBus)
		if err != nil {
			logger.ErrorCF("main", "discord init failed", map[string]interface{}{"error": err.Error()})
		} else if err := dc.Start(ctx); err != nil {
			logger.ErrorCF("main", "discord start failed", map[string]interface{}{"error": err.Error()})
		} else {
			gw.RegisterChannel(dc)
			defer dc.Stop(ctx)
		}
	}

	if cfg.Heartbeat.Enabled {
		hb := heartbeat.NewHeartbeatService(cfg.WorkspacePath(), cfg.Heartbeat.Cron, true)
		hb.SetPrompt(cfg.Heartbeat.Prompt)
		hb.SetOnHeartbeat(func(prompt string) (string, error) {
			return a.Think(ctx, prompt), nil
		})
		if err := hb.Start(); err != nil {
			logger.ErrorCF("main", "heartbeat start failed", map[string]interface{}{"error": err.Error()})
		} else {
			defer hb.Stop()
		}
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.InfoC("main", "shutting down")
		cancel()
	}()

	if cfg.Gateway.Enabled {
		if err := gw.Run(ctx, cfg.Gateway.Host, cfg.Gateway.Port); err != nil {
			fmt.Fprintf(os.Stderr, "gateway error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	logger.InfoC("main", "websocket gateway disabled, running bus only")
	gw.RunBusOnly(ctx)
}

// runThink is both the one-shot CLI mode and the sub-spore entrypoint.
// The answer goes to stdout verbatim; the exit code is the success
// signal for a waiting parent.
func runThink(args []string) {
	var taskParts []string
	role := ""
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--role" && i+1 < len(args):
			role = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--role="):
			role = strings.TrimPrefix(args[i], "--role=")
		default:
			taskParts = append(taskParts, args[i])
		}
	}
	task := strings.TrimSpace(strings.Join(taskParts, " "))
	if task == "" {
		fmt.Fprintln(os.Stderr, "usage: openspore think TASK [--role ROLE]")
		os.Exit(2)
	}
	if role != "" && os.Getenv(swarm.EnvSporeRole) == "" {
		os.Setenv(swarm.EnvSporeRole, role)
	}

	cfg := loadConfig()
	a, store := buildAgent(cfg)
	if store != nil {
		defer store.Close()
	}

	answer := a.Think(context.Background(), task)
	if strings.HasPrefix(answer, "Errors: ") {
		fmt.Fprintln(os.Stderr, answer)
		os.Exit(1)
	}
	fmt.Println(answer)
}

func runREPL() {
	cfg := loadConfig()
	a, store := buildAgent(cfg)
	if store != nil {
		defer store.Close()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "spore> ",
		HistoryFile:     cfg.WorkspacePath() + "/.repl_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("OpenSpore REPL. Type a task, or 'exit' to quit.")

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		fmt.Println(a.Think(ctx, line))
	}
}
