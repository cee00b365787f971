// Package ui provides styled console output for server startup and shutdown.
// Structured logs go through slog; this is only the human-facing terminal
// dressing around them.
package ui

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/modelgate/modelgate/internal/gateway"
)

var (
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	infoBadge   = color.New(color.FgCyan, color.Bold)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)

	methodPOST = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET  = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
)

// PrintBanner displays the startup banner.
func PrintBanner(version string) {
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Println()
	cyan.Println("╔══════════════════════════════════════════╗")
	cyan.Print("║  ")
	accentText.Print("MODELGATE")
	fmt.Print("  LLM gateway  ")
	mutedText.Printf("%-14s", version)
	cyan.Println("║")
	cyan.Println("╚══════════════════════════════════════════╝")
	fmt.Println()
}

// PrintStartupInfo prints the listen address and the configured providers.
func PrintStartupInfo(host string, port int, providers []gateway.ProviderInfo) {
	infoBadge.Print("[GATEWAY]")
	fmt.Print(" Listening on ")
	accentText.Printf("http://%s:%d\n", host, port)

	for _, p := range providers {
		infoBadge.Print("[GATEWAY]")
		fmt.Print(" Provider ")
		accentText.Printf("%-12s", p.Name)
		mutedText.Printf(" kind=%s ", p.Kind)
		if p.KeyCount > 0 {
			successText.Printf("keys=%d\n", p.KeyCount)
		} else {
			warningText.Println("keys=0")
		}
	}

	fmt.Println()
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	printEndpoint(methodPOST, "POST", "/v1/chat/completions", "Chat completion (OpenAI-compatible)")
	printEndpoint(methodGET, "GET ", "/v1/usage/:provider", "Upstream usage report")
	printEndpoint(methodGET, "GET ", "/v1/providers", "Configured providers")
	printEndpoint(methodGET, "GET ", "/health", "Health check")
	printEndpoint(methodGET, "GET ", "/metrics", "Prometheus metrics")
	fmt.Println()
}

func printEndpoint(badge *color.Color, method, path, desc string) {
	fmt.Print("  ")
	badge.Printf(" %s ", method)
	fmt.Printf(" %-22s ", path)
	mutedText.Println(desc)
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Println()
	warningText.Println("[SHUTDOWN] Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successText.Println("Server stopped. Goodbye!")
}
