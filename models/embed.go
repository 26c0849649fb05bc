// Package models embeds the default trained model artifacts.
package models

import "embed"

// FS holds skill_gap.yaml, difficulty.yaml and ranking.yaml.
//
//go:embed *.yaml
var FS embed.FS
