// Package main is the operator CLI for the randomness consumer contract.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	ucli "github.com/urfave/cli/v2"

	"github.com/R3E-Network/starknet_randomness/internal/app"
	"github.com/R3E-Network/starknet_randomness/internal/chain"
	"github.com/R3E-Network/starknet_randomness/internal/cli"
	"github.com/R3E-Network/starknet_randomness/internal/config"
	"github.com/R3E-Network/starknet_randomness/internal/logging"
	"github.com/R3E-Network/starknet_randomness/internal/randomness"
	"github.com/R3E-Network/starknet_randomness/services/txsubmitter"
)

func main() {
	cliApp := &ucli.App{
		Name:  "randomness-cli",
		Usage: "request and inspect on-chain randomness",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Commands: []*ucli.Command{
			previewCommand(),
			requestCommand(),
			numbersCommand(),
			statusCommand(),
			setCoordinatorCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var (
	seedFlag = &ucli.StringFlag{Name: "seed", Usage: "seed integer, decimal or 0x hex (defaults to randomness.default_seed)"}
	modeFlag = &ucli.StringFlag{Name: "mode", Usage: "devnet, production-standard, production-safe or auto"}
)

func previewCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "preview",
		Usage: "print the calls a request would submit",
		Flags: []ucli.Flag{seedFlag, modeFlag},
		Action: func(c *ucli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			mode, err := requestedMode(cfg, c.String("mode"))
			if err != nil {
				return err
			}
			mode = randomness.ResolveMode(mode, cfg.Network.Name)
			batch, err := randomness.BuildBatch(cfg.RequestSeed(c.String("seed")), mode, cfg.RandomnessParams())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"mode": mode, "calls": batch})
		},
	}
}

func requestCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "request",
		Usage: "submit a randomness request",
		Flags: []ucli.Flag{
			seedFlag,
			modeFlag,
			&ucli.BoolFlag{Name: "wait", Usage: "wait until the transaction is accepted"},
		},
		Action: func(c *ucli.Context) error {
			ctx := c.Context
			a, cfg, err := buildApp(c)
			if err != nil {
				return err
			}
			defer a.Stop()

			mode, err := requestedMode(cfg, c.String("mode"))
			if err != nil {
				return err
			}
			status, err := a.Wallet.Status(ctx)
			if err != nil {
				return fmt.Errorf("wallet status: %w", err)
			}

			snap, err := runSession(ctx, randomness.SessionConfig{
				Params:    cfg.RandomnessParams(),
				Mode:      mode,
				Seed:      cfg.RequestSeed(c.String("seed")),
				Env:       status.Environment(cfg.Network.Name),
				Submitter: a.Submitter,
			})
			if err != nil {
				return err
			}
			out := cli.NewPrinter()
			if snap.Err != nil {
				out.Error(snap.Err.Message)
				return ucli.Exit(string(snap.Err.Category), 1)
			}
			out.Success("randomness requested")
			out.Field("mode", string(snap.ResolvedMode))
			out.Field("tx hash", snap.TxHash)

			if !c.Bool("wait") || a.Chain == nil {
				return nil
			}
			spinner := out.NewSpinner("waiting for acceptance")
			spinner.Start()
			txStatus, err := a.Chain.WaitForTransaction(ctx, snap.TxHash, chain.DefaultPollInterval)
			if err != nil {
				spinner.Error(err.Error())
				return err
			}
			if !txStatus.Succeeded() {
				classified := randomness.Classify(errors.New(txStatus.FailureReason))
				spinner.Error(classified.Message)
				return ucli.Exit(string(classified.Category), 1)
			}
			spinner.Success(txStatus.FinalityStatus)

			receipt, err := a.Chain.GetTransactionReceipt(ctx, snap.TxHash)
			if err != nil {
				out.Warning("receipt unavailable: " + err.Error())
				return nil
			}
			out.Field("block", strconv.FormatUint(receipt.BlockNumber, 10))
			out.Field("actual fee", receipt.ActualFee.String())
			out.Field("events", strconv.Itoa(len(receipt.Events)))
			return nil
		},
	}
}

// runSession triggers one submission and waits for its outcome.
func runSession(ctx context.Context, cfg randomness.SessionConfig) (randomness.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan randomness.Snapshot, 1)
	cfg.OnChange = func(s randomness.Snapshot) {
		if s.Done() {
			select {
			case done <- s:
			default:
			}
		}
	}
	session := randomness.NewSession(cfg)
	go session.Run(ctx)

	if err := session.Trigger(ctx); err != nil {
		return randomness.Snapshot{}, err
	}
	select {
	case snap := <-done:
		return snap, nil
	case <-ctx.Done():
		return randomness.Snapshot{}, ctx.Err()
	}
}

func numbersCommand() *ucli.Command {
	return &ucli.Command{
		Name:      "numbers",
		Usage:     "read the numbers recorded for a generation id",
		ArgsUsage: "<generation-id>",
		Action: func(c *ucli.Context) error {
			if c.NArg() != 1 {
				return ucli.Exit("expected exactly one generation id", 2)
			}
			id, err := strconv.ParseUint(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("generation id: %w", err)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			client, err := chain.NewClient(chain.Config{RPCURL: cfg.Network.RPCURL, Timeout: cfg.Network.Timeout})
			if err != nil {
				return err
			}
			numbers, err := chain.NewRandomnessContract(client, cfg.Contracts.Consumer).GetGenerationNumbers(c.Context, id)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"generation_id": id, "numbers": numbers})
		},
	}
}

func statusCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "status",
		Usage: "show the signing account and whether requests are allowed",
		Action: func(c *ucli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			var client *chain.Client
			if cfg.Network.RPCURL != "" {
				client, err = chain.NewClient(chain.Config{RPCURL: cfg.Network.RPCURL, Timeout: cfg.Network.Timeout})
				if err != nil {
					return err
				}
			}
			w, err := app.NewWallet(c.Context, cfg, client)
			if err != nil {
				return err
			}
			status, err := w.Status(c.Context)
			if err != nil {
				return err
			}

			out := map[string]any{
				"wallet":         status,
				"target_network": cfg.Network.Name,
				"mode":           randomness.ResolveMode(cfg.Mode(), status.NetworkName),
				"write_disabled": false,
			}
			if err := status.Environment(cfg.Network.Name).Check(); err != nil {
				out["write_disabled"] = true
				out["reason"] = err.Error()
			}
			if client != nil {
				if block, err := client.BlockNumber(c.Context); err == nil {
					out["latest_block"] = block
				}
			}
			return printJSON(out)
		},
	}
}

func setCoordinatorCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "set-coordinator",
		Usage: "point the consumer contract at a VRF coordinator",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "address", Usage: "coordinator address (defaults to the configured VRF provider)"},
		},
		Action: func(c *ucli.Context) error {
			ctx := c.Context
			a, cfg, err := buildApp(c)
			if err != nil {
				return err
			}
			defer a.Stop()

			address := c.String("address")
			if address == "" {
				address = cfg.Contracts.VRFProvider
			}
			call, err := randomness.SetVRFCoordinatorCall(cfg.Contracts.Consumer, address)
			if err != nil {
				return err
			}

			status, err := a.Wallet.Status(ctx)
			if err != nil {
				return fmt.Errorf("wallet status: %w", err)
			}
			if err := status.Environment(cfg.Network.Name).Check(); err != nil {
				return err
			}

			resp, err := a.Submitter.Submit(ctx, txsubmitter.SubmitRequest{
				Kind:  txsubmitter.KindAdmin,
				Batch: randomness.CallBatch{call},
			})
			if err != nil {
				return err
			}
			out := cli.NewPrinter()
			out.Success("coordinator update submitted")
			out.Field("tx hash", resp.TxHash)
			return nil
		},
	}
}

func loadConfig(c *ucli.Context) (*config.Config, error) {
	return config.Load(c.String("config"))
}

func buildApp(c *ucli.Context) (*app.Application, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()
	a, err := app.New(ctx, cfg, logging.New("randomness-cli", cfg.Log))
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func requestedMode(cfg *config.Config, flagValue string) (randomness.Mode, error) {
	if flagValue == "" {
		return cfg.Mode(), nil
	}
	return randomness.ParseMode(flagValue)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
