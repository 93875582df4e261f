package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/arma3tool/arma3tool/internal/apperrors"
)

// ItemTypeConfig names the base classes that define one exported item
// category (e.g. "weapons" rooted at Rifle_Base_F).
type ItemTypeConfig struct {
	BaseClasses []string `json:"base_classes"`
}

// ExclusionRules sets the scope threshold below which the exporter drops a
// class (a numeric scope property <= MaxScope) and which class-name prefixes
// it will always drop regardless of ancestry.
type ExclusionRules struct {
	MaxScope         int      `json:"max_scope"`
	ExcludedPrefixes []string `json:"excluded_prefixes"`
}

// ItemFilterConfig drives internal/export's inheritance-filtered exporter.
type ItemFilterConfig struct {
	Version        string                     `json:"version"`
	ItemTypes      map[string]ItemTypeConfig  `json:"item_types"`
	ExclusionRules ExclusionRules             `json:"exclusion_rules"`
}

// DefaultItemFilterConfig mirrors the reference defaults: four item
// categories and a single excluded prefix.
func DefaultItemFilterConfig() *ItemFilterConfig {
	return &ItemFilterConfig{
		Version: "1.0",
		ItemTypes: map[string]ItemTypeConfig{
			"weapons":   {BaseClasses: []string{"Rifle_Base_F", "Pistol_Base_F", "Launcher_Base_F"}},
			"uniforms":  {BaseClasses: []string{"Uniform_Base", "U_BasicBody"}},
			"vests":     {BaseClasses: []string{"Vest_Base", "Vest_Camo_Base"}},
			"backpacks": {BaseClasses: []string{"Bag_Base"}},
		},
		ExclusionRules: ExclusionRules{
			MaxScope:         1,
			ExcludedPrefixes: []string{"B_soldier_f"},
		},
	}
}

// ItemFilterFromJSON parses and validates an ItemFilterConfig from JSON text.
func ItemFilterFromJSON(data []byte) (*ItemFilterConfig, error) {
	var cfg ItemFilterConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidFormat, "ItemFilterFromJSON", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadItemFilter reads and validates an ItemFilterConfig from disk.
func LoadItemFilter(path string) (*ItemFilterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIoError, "LoadItemFilter", err).WithPath(path)
	}
	return ItemFilterFromJSON(data)
}

// SaveItemFilter writes cfg as indented JSON to path.
func SaveItemFilter(cfg *ItemFilterConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.KindInvalidFormat, "SaveItemFilter", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.KindIoError, "SaveItemFilter", err).WithPath(path)
	}
	return nil
}

// Validate enforces the same four rules the reference configuration does:
// a non-empty version, at least one item type, every item type naming at
// least one base class, and a max_scope within [0, 10].
func (c *ItemFilterConfig) Validate() error {
	if strings.TrimSpace(c.Version) == "" {
		return apperrors.New(apperrors.KindValidationFailed, "ItemFilterConfig.Validate", "version must not be empty")
	}
	if len(c.ItemTypes) == 0 {
		return apperrors.New(apperrors.KindValidationFailed, "ItemFilterConfig.Validate", "at least one item type is required")
	}
	for name, it := range c.ItemTypes {
		if len(it.BaseClasses) == 0 {
			return apperrors.New(apperrors.KindValidationFailed, "ItemFilterConfig.Validate", "item type "+name+" has no base classes")
		}
	}
	if c.ExclusionRules.MaxScope < 0 || c.ExclusionRules.MaxScope > 10 {
		return apperrors.New(apperrors.KindValidationFailed, "ItemFilterConfig.Validate", "max_scope must be within [0, 10]")
	}
	return nil
}

// GetBaseClasses returns the configured base classes for an item type.
func (c *ItemFilterConfig) GetBaseClasses(itemType string) []string {
	return c.ItemTypes[itemType].BaseClasses
}

// IsExcludedByPrefix reports whether name starts with any excluded prefix.
func (c *ItemFilterConfig) IsExcludedByPrefix(name string) bool {
	for _, p := range c.ExclusionRules.ExcludedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// AddExcludedPrefix adds a prefix if it is not already present.
func (c *ItemFilterConfig) AddExcludedPrefix(prefix string) {
	for _, p := range c.ExclusionRules.ExcludedPrefixes {
		if p == prefix {
			return
		}
	}
	c.ExclusionRules.ExcludedPrefixes = append(c.ExclusionRules.ExcludedPrefixes, prefix)
}

// ApplyEnv overlays ARMA3_MAX_SCOPE and ARMA3_EXCLUDED_PREFIXES (a
// comma-separated, whitespace-trimmed list) onto the exclusion rules,
// letting an operator override the on-disk config without editing it.
func (c *ItemFilterConfig) ApplyEnv() {
	if v := os.Getenv("ARMA3_MAX_SCOPE"); v != "" {
		if scope, err := strconv.Atoi(v); err == nil {
			c.ExclusionRules.MaxScope = scope
		}
	}
	if v := os.Getenv("ARMA3_EXCLUDED_PREFIXES"); v != "" {
		parts := strings.Split(v, ",")
		prefixes := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				prefixes = append(prefixes, trimmed)
			}
		}
		c.ExclusionRules.ExcludedPrefixes = prefixes
	}
}

// RemoveExcludedPrefix removes the first occurrence of prefix, if present.
func (c *ItemFilterConfig) RemoveExcludedPrefix(prefix string) {
	for i, p := range c.ExclusionRules.ExcludedPrefixes {
		if p == prefix {
			c.ExclusionRules.ExcludedPrefixes = append(c.ExclusionRules.ExcludedPrefixes[:i], c.ExclusionRules.ExcludedPrefixes[i+1:]...)
			return
		}
	}
}
