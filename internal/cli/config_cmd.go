// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration management command for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
//
// Reads and edits ~/.fleetwatch/config.toml. Edits go through the same
// validation the client applies at startup, so a value that would be
// rejected there is rejected here too.
//
// Command: config [subcommand]
// Short:   Show or edit configuration
//
// Subcommands:
//   show (default)      Show the resolved configuration
//   get <key>           Show one value
//   set <key> <value>   Set a value and save
//   path                Show the config file path
//   keys                List settable keys
//
// Examples:
//   fleetwatch config show
//   fleetwatch config get authority.url
//   fleetwatch config set authority.url http://10.20.0.9:8790
//   fleetwatch config set session.poll_interval_secs 60
//   fleetwatch config set session.restore_on_startup false

package cli

import (
	"fmt"

	"github.com/jeranaias/fleetwatch/internal/config"
)

// HandleConfig handles the "config" command with its subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(args)
	case "get":
		return handleConfigGet(args)
	case "set":
		return handleConfigSet(args)
	case "path":
		return handleConfigPath(args)
	case "keys":
		return handleConfigKeys(args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"unknown config subcommand", "fleetwatch config [show|get|set|path|keys]")
	}
}

func handleConfigShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "failed to load configuration")
	}

	if args.JSON {
		return NewJSONResponse("config", cfg).Print()
	}

	path, _ := config.ConfigPathTOML()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Fleetwatch Configuration"))
	for _, key := range config.GetAllKeys() {
		val, gerr := cfg.Get(key)
		if gerr != nil {
			continue
		}
		fmt.Printf("%s %v\n", RenderLabel("  "+key, 32), val)
	}
	fmt.Println()
	fmt.Printf("%s %s\n", DimStyle.Render("file:"), path)
	fmt.Println()
	return nil
}

func handleConfigGet(args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("key", "fleetwatch config get authority.url")
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "failed to load configuration")
	}

	val, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return NewNotFoundError("config key", args.ConfigKey)
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{args.ConfigKey: val}).Print()
	}

	fmt.Printf("%v\n", val)
	return nil
}

func handleConfigSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("key/value", "fleetwatch config set authority.url http://10.20.0.9:8790")
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "failed to load configuration")
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return WrapError(err, "failed to set value")
	}

	if err := cfg.Validate(); err != nil {
		return WrapError(err, "rejected: the new value fails validation")
	}

	if err := config.Save(cfg); err != nil {
		return WrapError(err, "failed to save configuration")
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{args.ConfigKey: args.ConfigVal}).Print()
	}

	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), args.ConfigKey, args.ConfigVal)
	return nil
}

func handleConfigPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return WrapError(err, "failed to resolve config path")
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Print()
	}

	fmt.Println(path)
	return nil
}

func handleConfigKeys(args Args) error {
	keys := config.GetAllKeys()

	if args.JSON {
		return NewJSONResponse("config", map[string][]string{"keys": keys}).Print()
	}

	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}
