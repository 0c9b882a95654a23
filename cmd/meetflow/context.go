package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/apiclient"
	"meetflow/internal/config"
	"meetflow/internal/queueaccess"
	"meetflow/internal/records"
)

const probeTimeout = 2 * time.Second

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	if cfg == nil {
		return ""
	}
	return cfg.Logging.Level
}

// apiClient builds a client for the configured bind address; it does not
// check that a daemon is listening.
func (c *commandContext) apiClient() (*apiclient.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return apiclient.FromConfig(cfg)
}

// withQueue runs fn against the daemon when it answers and against the queue
// database otherwise.
func (c *commandContext) withQueue(ctx context.Context, fn func(queueaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	session, err := queueaccess.OpenWithFallback(ctx, c.apiClient, queueaccess.ConfigStores(cfg))
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session.Access)
}

// recordsView is the read side of customers, diagrams and action items. Both
// the daemon client and the in-process service implement it.
type recordsView interface {
	Customers(ctx context.Context) ([]api.Customer, error)
	CustomerActions(ctx context.Context, customerID int64, includeCompleted bool) ([]api.ActionItem, error)
	OpenActions(ctx context.Context, owner string) ([]api.ActionItem, error)
	CustomerDiagram(ctx context.Context, customerID int64) (*api.Diagram, error)
	ToggleAction(ctx context.Context, id int64) (*api.ActionItem, error)
}

func (c *commandContext) withRecordsView(ctx context.Context, fn func(recordsView) error) error {
	client, err := c.apiClient()
	if err == nil {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		_, err = client.Status(probeCtx)
		cancel()
		if err == nil {
			return fn(client)
		}
		if !apiclient.IsUnavailable(err) && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("daemon api: %w", err)
		}
	}
	return c.withRecords(func(store *records.Store) error {
		return fn(api.NewRecordsService(store))
	})
}

// withRecords opens the records database directly. Edits go through here
// whether or not the daemon is running; SQLite serializes the writers.
func (c *commandContext) withRecords(fn func(*records.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := records.Open(cfg)
	if err != nil {
		return fmt.Errorf("open records database: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseID(arg, label string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", label, arg)
	}
	return id, nil
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg, "job")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
