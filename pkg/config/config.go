package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/logger"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/policy"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ErrMissingSetting is returned when a required setting is absent. It is the
// only error that aborts a run.
var ErrMissingSetting = errors.New("missing required setting")

const (
	DefaultSchedule    = "0 0 15 * * *"
	DefaultMetricsAddr = ":9090"
	DefaultSlackAPIURL = "https://slack.com/api/chat.postMessage"
)

// Config captures runtime configuration. It is built once and passed by value.
type Config struct {
	BotToken          string
	Hook              string
	Channel           string
	UpdateRules       bool
	AddInMissingRules bool
	WhiteList         string

	NotifyURL      string
	Schedule       string
	PolicyFile     string
	SlackAPIURL    string
	LogFile        string
	Debug          bool
	MetricsAddr    string
	SubscriptionID string
}

// settings maps viper keys to the environment variable names used by the
// deployed function app.
var settings = map[string]string{
	"bottoken":          "botToken",
	"hook":              "hook",
	"channel":           "channel",
	"updaterules":       "UpdateRules",
	"addinmissingrules": "AddInMissingRules",
	"whitelist":         "WhiteList",
	"notifyurl":         "NotifyURL",
	"schedule":          "Schedule",
	"policyfile":        "PolicyFile",
	"slackapiurl":       "SlackAPIURL",
	"log_file":          "LOG_FILE",
	"debug":             "DEBUG",
	"metrics_addr":      "METRICS_ADDR",
	"subscription_id":   "AZURE_SUBSCRIPTION_ID",
}

// Load reads a .env file when present, then the environment, then the optional
// config file. Environment values win over the file.
func Load(configFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log().WithError(err).Warn("Could not read .env file")
	}

	v := viper.New()
	v.SetDefault("schedule", DefaultSchedule)
	v.SetDefault("metrics_addr", DefaultMetricsAddr)
	v.SetDefault("slackapiurl", DefaultSlackAPIURL)
	for key, env := range settings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		BotToken:          strings.TrimSpace(v.GetString("bottoken")),
		Hook:              strings.TrimSpace(v.GetString("hook")),
		Channel:           strings.TrimSpace(v.GetString("channel")),
		UpdateRules:       ParseFlag("UpdateRules", v.GetString("updaterules")),
		AddInMissingRules: ParseFlag("AddInMissingRules", v.GetString("addinmissingrules")),
		WhiteList:         v.GetString("whitelist"),
		NotifyURL:         strings.TrimSpace(v.GetString("notifyurl")),
		Schedule:          v.GetString("schedule"),
		PolicyFile:        v.GetString("policyfile"),
		SlackAPIURL:       v.GetString("slackapiurl"),
		LogFile:           v.GetString("log_file"),
		Debug:             strings.EqualFold(strings.TrimSpace(v.GetString("debug")), "true"),
		MetricsAddr:       v.GetString("metrics_addr"),
		SubscriptionID:    strings.TrimSpace(v.GetString("subscription_id")),
	}
}

// ParseFlag accepts "true" or "false" in any case. Anything else, including an
// empty value, is false.
func ParseFlag(name, raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true
	case "false":
		return false
	}
	logger.WithFields(logrus.Fields{"setting": name, "value": raw}).
		Infof("Could not parse %s, defaulting to false", name)
	return false
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var missing []string
	if c.BotToken == "" && c.Hook == "" && c.NotifyURL == "" {
		missing = append(missing, "botToken|hook|NotifyURL")
	}
	if c.Hook != "" && c.Channel == "" {
		missing = append(missing, "channel")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}

// Policy returns the builtin baseline, or the one in PolicyFile when set.
func (c Config) Policy() (policy.Policy, error) {
	if c.PolicyFile == "" {
		return policy.DefaultPolicy(), nil
	}
	p, err := policy.LoadPolicyFile(c.PolicyFile)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("load policy file: %w", err)
	}
	return p, nil
}

// Redacted is safe to log.
func (c Config) Redacted() logrus.Fields {
	return logrus.Fields{
		"bot_token":            c.BotToken != "",
		"hook":                 c.Hook != "",
		"notify_url":           c.NotifyURL != "",
		"channel":              c.Channel,
		"update_rules":         c.UpdateRules,
		"add_in_missing_rules": c.AddInMissingRules,
		"schedule":             c.Schedule,
		"policy_file":          c.PolicyFile,
		"subscription":         c.SubscriptionID,
	}
}
