// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package monitorui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the monitor TUI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected timeline row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Baseline (@@INIT) row accent.
	BaselineText lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Status bar accents.
	StatusOK    lipgloss.Color
	StatusError lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	BaselineText: lipgloss.Color("141"), // light purple

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	StatusOK:    lipgloss.Color("114"), // green
	StatusError: lipgloss.Color("196"), // red
}
