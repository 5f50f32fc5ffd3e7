package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shazow/wifilinker/internal/tui"
	"github.com/shazow/wifilinker/linker"
	"github.com/shazow/wifilinker/wifi"
)

func runTUI(l *linker.Linker) error {
	if err := tui.Run(l); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// scan runs a scan and waits for its results.
func scan(ctx context.Context, l *linker.Linker) ([]wifi.ScanResult, error) {
	done := make(chan []wifi.ScanResult, 1)
	l.Scan(linker.ScanFuncs{
		Stop: func(results []wifi.ScanResult) { done <- results },
	})
	select {
	case results := <-done:
		return results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func formatScanResult(r wifi.ScanResult) string {
	parts := []string{fmt.Sprintf("%d%%", r.Strength), r.Security().String()}
	if r.Frequency > 0 {
		parts = append(parts, fmt.Sprintf("%d MHz", r.Frequency))
	}
	return strings.Join(parts, ", ")
}

func runScan(ctx context.Context, w io.Writer, l *linker.Linker, all bool) error {
	results, err := scan(ctx, l)
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}
	if !all {
		results = wifi.StrongestPerSSID(results)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		if all {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.SSID, r.BSSID, formatScanResult(r))
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", r.SSID, formatScanResult(r))
		}
	}
	return tw.Flush()
}

func runProfiles(w io.Writer, l *linker.Linker) error {
	profiles, err := l.Profiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range profiles {
		state := "enabled"
		if !p.Enabled {
			state = "disabled"
		}
		if p.Hidden {
			state += ", hidden"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.SSID, p.Security, state)
	}
	return tw.Flush()
}

// outcome is the first result a StatusListener receives for a connect.
type outcome struct {
	status linker.Status
	info   wifi.LinkInfo
}

// runConnect joins ssid and waits for the outcome. With security left to be
// derived, a scan runs first so the network can be classified.
func runConnect(ctx context.Context, w io.Writer, l *linker.Linker, ssid, credential string, security wifi.SecurityType) error {
	if security == wifi.SecurityUnknown && len(l.ScanResults()) == 0 {
		fmt.Fprintf(w, "Scanning for '%s'...\n", ssid)
		if _, err := scan(ctx, l); err != nil {
			return fmt.Errorf("failed to scan: %w", err)
		}
	}

	outcomes := make(chan outcome, 2)
	var last linker.Status
	listener := linker.ListenerFuncs{
		StatusChange: func(success bool, status linker.Status) {
			if success {
				// Wait for the link details that follow.
				last = status
				return
			}
			select {
			case outcomes <- outcome{status: status}:
			default:
			}
		},
		Connect: func(info wifi.LinkInfo) {
			select {
			case outcomes <- outcome{status: last, info: info}:
			default:
			}
		},
	}

	attempt, err := l.Connect(ssid, credential, security, listener)
	if err != nil {
		return err
	}
	if attempt.AlreadyConnected() {
		fmt.Fprintf(w, "Already connected to '%s'\n", ssid)
		return nil
	}

	select {
	case o := <-outcomes:
		if err := o.status.Err(); err != nil {
			return fmt.Errorf("connect to '%s': %w", ssid, err)
		}
		fmt.Fprintf(w, "Connected to '%s'\n", o.info.SSID)
		if o.info.IP != "" {
			fmt.Fprintf(w, "IP: %s\nGateway: %s\nMAC: %s\n", o.info.IP, o.info.Gateway, o.info.MAC)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connect to '%s': %w", ssid, ctx.Err())
	}
}

func runDisconnect(w io.Writer, l *linker.Linker) error {
	if err := l.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	fmt.Fprintln(w, "Disconnected")
	return nil
}

// runShare prints a QR code that joins a stored network.
func runShare(w io.Writer, backend wifi.Backend, ssid string) error {
	profiles, err := backend.Profiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	for _, p := range profiles {
		if p.SSID != ssid {
			continue
		}
		secret, err := backend.ProfileSecret(p.ID)
		if err != nil {
			return fmt.Errorf("failed to get network secret: %w", err)
		}
		code, err := GenerateWifiQRCode(p.SSID, secret, p.Security, p.Hidden)
		if err != nil {
			return fmt.Errorf("failed to generate qr code: %w", err)
		}
		fmt.Fprint(w, code)
		return nil
	}
	return fmt.Errorf("network not found: %s: %w", ssid, wifi.ErrNotFound)
}
