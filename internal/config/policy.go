package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MenuPolicy bounds what editors may author. It is reloaded without a restart.
type MenuPolicy struct {
	// Cities is the allow-list of dormitory cities. Empty means any city.
	Cities           []string `mapstructure:"cities"`
	MaxDishesPerMenu int      `mapstructure:"maxDishesPerMenu"`
	MaxCalories      int      `mapstructure:"maxCalories"`
}

func DefaultMenuPolicy() MenuPolicy {
	return MenuPolicy{
		MaxDishesPerMenu: 20,
		MaxCalories:      5000,
	}
}

// AllowsCity reports whether city is accepted by the policy.
func (p MenuPolicy) AllowsCity(city string) bool {
	if len(p.Cities) == 0 {
		return true
	}
	for _, c := range p.Cities {
		if strings.EqualFold(strings.TrimSpace(c), city) {
			return true
		}
	}
	return false
}

// MenuPolicyProvider returns the policy currently in effect.
type MenuPolicyProvider interface {
	Get() MenuPolicy
}

// StaticMenuPolicy is a provider that never changes.
type StaticMenuPolicy MenuPolicy

func (s StaticMenuPolicy) Get() MenuPolicy { return MenuPolicy(s) }

type MenuPolicyHolder struct {
	current atomic.Value // holds MenuPolicy
}

func NewMenuPolicyHolder(cfg Config, log *zap.Logger) (*MenuPolicyHolder, error) {
	log = log.Named("config.menu_policy")
	v := viper.New()

	if cfg.MenuPolicyPath != "" {
		v.SetConfigFile(cfg.MenuPolicyPath)
	} else {
		v.SetConfigName("menu-policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/dormmenu")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DORMMENU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultMenuPolicy()
	v.SetDefault("menu.cities", defaults.Cities)
	v.SetDefault("menu.maxDishesPerMenu", defaults.MaxDishesPerMenu)
	v.SetDefault("menu.maxCalories", defaults.MaxCalories)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	policy, err := decodeMenuPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &MenuPolicyHolder{}
	holder.current.Store(policy)

	if !fileLoaded {
		log.Info("menu policy file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeMenuPolicy(v)
		if err != nil {
			log.Warn("invalid menu policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("menu policy reloaded", zap.String("file", filepath.Base(e.Name)))
	})

	return holder, nil
}

func (h *MenuPolicyHolder) Get() MenuPolicy {
	return h.current.Load().(MenuPolicy)
}

func decodeMenuPolicy(v *viper.Viper) (MenuPolicy, error) {
	var policy MenuPolicy
	if err := v.UnmarshalKey("menu", &policy); err != nil {
		return MenuPolicy{}, err
	}
	if err := validateMenuPolicy(policy); err != nil {
		return MenuPolicy{}, err
	}
	return policy, nil
}

func validateMenuPolicy(p MenuPolicy) error {
	if p.MaxDishesPerMenu <= 0 {
		return errors.New("menu.maxDishesPerMenu must be positive")
	}
	if p.MaxCalories <= 0 {
		return errors.New("menu.maxCalories must be positive")
	}
	for _, c := range p.Cities {
		if strings.TrimSpace(c) == "" {
			return errors.New("menu.cities cannot contain blank entries")
		}
	}
	return nil
}
