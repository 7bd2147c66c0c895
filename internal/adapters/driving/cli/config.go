package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change configuration stored in config.toml.

Recognised keys:
  store.backend                  index backend: flat or document
  store.data_dir                 directory for the persistent store
  backup.dir                     directory for snapshots
  backup.retention               snapshots kept when pruning
  chunker.size                   chunk size in characters
  chunker.overlap                overlap between chunks in characters
  embedding.provider             hash, openai, or ollama
  embedding.model                provider model name
  embedding.api_key              API key (openai)
  embedding.base_url             API endpoint override
  embedding.dimensions           embedding vector width
  embedding.requests_per_second  rate limit for remote providers
  health.threshold               probe similarity cutoff (0..1)`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a key and persists it immediately. Values that parse as
integers, floats, or booleans are stored typed; everything else is
stored as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured values",
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}

	key := args[0]
	val, ok := configStore.Get(key)
	if !ok {
		return fmt.Errorf("key %q is not set", key)
	}
	cmd.Printf("%v\n", displayValue(key, val))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}

	key, raw := args[0], args[1]
	value := parseConfigValue(raw)
	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("Set %s = %v\n", key, displayValue(key, value))
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}

	all := configStore.All()
	if len(all) == 0 {
		cmd.Println("No configuration set; built-in defaults apply.")
		cmd.Printf("Config file: %s\n", configStore.Path())
		return nil
	}

	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cmd.Printf("%s = %v\n", key, displayValue(key, all[key]))
	}
	return nil
}

// parseConfigValue types a raw flag value the way TOML would: integers
// as int64, then floats, then booleans, falling back to string.
func parseConfigValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

// displayValue masks secrets so keys are safe to echo and list.
func displayValue(key string, val any) any {
	if !strings.Contains(key, "api_key") {
		return val
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return val
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
