package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
	"github.com/Riboost-Studio/traceability-label-bridge/internal/utils"
)

const (
	probeTimeout     = 300 * time.Millisecond
	discoveryWorkers = 50
)

// --- Discovery Logic ---

// DiscoverPrinters scans the local /24 subnet for hosts accepting connections
// on port.
func DiscoverPrinters(ctx context.Context, port int) ([]string, error) {
	localIP, err := utils.DetectLocalIP()
	if err != nil {
		return nil, fmt.Errorf("detect local ip: %w", err)
	}
	parts := strings.Split(localIP, ".")
	subnet := strings.Join(parts[:3], ".")
	log.Printf("[discovery] Scanning subnet: %s.0/24 on port %d", subnet, port)

	hosts := make([]string, 0, 254)
	for i := 1; i <= 254; i++ {
		hosts = append(hosts, fmt.Sprintf("%s.%d", subnet, i))
	}
	return scanHosts(ctx, hosts, port, utils.Probe), nil
}

type probeFunc func(ip string, port int, timeout time.Duration) bool

func scanHosts(ctx context.Context, hosts []string, port int, probe probeFunc) []string {
	ipChan := make(chan string)
	foundChan := make(chan string, len(hosts))
	var wg sync.WaitGroup

	for i := 0; i < discoveryWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ip := range ipChan {
				if probe(ip, port, probeTimeout) {
					foundChan <- ip
				}
			}
		}()
	}

feed:
	for _, ip := range hosts {
		select {
		case ipChan <- ip:
		case <-ctx.Done():
			break feed
		}
	}
	close(ipChan)
	wg.Wait()
	close(foundChan)

	found := make(map[string]bool, len(foundChan))
	for ip := range foundChan {
		found[ip] = true
	}
	// keep subnet order
	var result []string
	for _, ip := range hosts {
		if found[ip] {
			result = append(result, ip)
		}
	}
	log.Printf("[discovery] Found %d printer(s)", len(result))
	return result
}

// CheckPrinter probes the configured printer.
func CheckPrinter(config model.PrinterConfig) model.PrinterStatus {
	return model.PrinterStatus{
		IP:        config.PrinterIP,
		Port:      config.PrinterPort,
		Reachable: utils.Probe(config.PrinterIP, config.PrinterPort, time.Second),
	}
}
