// go-winnsen
// Copyright (c) 2025 The ParcelKiosk Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-winnsen.
//
// go-winnsen is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-winnsen is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-winnsen; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// lockerctl is a diagnostic CLI for Winnsen locker controller boards.
//
// Usage:
//
//	lockerctl [flags] unlock <lock|lockerID>
//	lockerctl [flags] status <lock|lockerID>
//	lockerctl [flags] status-all
//	lockerctl [flags] emergency-unlock
//	lockerctl [flags] watch
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	winnsen "github.com/parcelkiosk/go-winnsen"
	"github.com/parcelkiosk/go-winnsen/detection"
	"github.com/parcelkiosk/go-winnsen/transport/serialport"
)

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	configPath := flag.String("config", "", "Path to YAML config file")
	portFlag := flag.String("port", "", "Serial port path (overrides discovery)")
	watchInterval := flag.Duration("interval", 5*time.Second, "Polling interval for watch mode")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return 1
	}

	cfg := DefaultCLIConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lockerctl: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	supervisor, err := winnsen.NewSupervisor(opener(cfg),
		winnsen.WithDeviceConfig(cfg.DeviceConfig()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lockerctl: %v\n", err)
		return 1
	}
	defer func() { _ = supervisor.Close() }()

	unsubscribe := supervisor.Subscribe(func(state winnsen.ConnectionState) {
		fmt.Printf("connection: %s\n", state)
	})
	defer unsubscribe()

	if err := supervisor.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lockerctl: connect: %v\n", err)
		return 1
	}

	controller, err := winnsen.NewSupervisedController(supervisor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lockerctl: %v\n", err)
		return 1
	}

	if err := dispatch(ctx, controller, flag.Args(), *watchInterval); err != nil {
		fmt.Fprintf(os.Stderr, "lockerctl: %v\n", err)
		return 1
	}
	return 0
}

// opener builds the transport opener: explicit port when pinned,
// VID/PID discovery otherwise.
func opener(cfg Config) winnsen.TransportOpener {
	return func(_ context.Context) (winnsen.Transport, error) {
		portName := cfg.Port
		if portName == "" {
			found, err := detection.FindPort(cfg.Selector())
			if err != nil {
				return nil, err
			}
			portName = found
		}
		return serialport.Open(portName, cfg.BaudRate)
	}
}

func dispatch(ctx context.Context, controller *winnsen.Controller, args []string, interval time.Duration) error {
	switch args[0] {
	case "unlock":
		if len(args) != 2 {
			return fmt.Errorf("usage: lockerctl unlock <lock|lockerID>")
		}
		lock, err := resolveLock(controller, args[1])
		if err != nil {
			return err
		}
		printResult(controller.UnlockContext(ctx, lock))
		return nil

	case "status":
		if len(args) != 2 {
			return fmt.Errorf("usage: lockerctl status <lock|lockerID>")
		}
		lock, err := resolveLock(controller, args[1])
		if err != nil {
			return err
		}
		printResult(controller.StatusContext(ctx, lock))
		return nil

	case "status-all":
		printResults(controller.StatusAllContext(ctx))
		return nil

	case "emergency-unlock":
		printResults(controller.EmergencyUnlockAllContext(ctx))
		return nil

	case "watch":
		return watch(ctx, controller, interval)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// resolveLock accepts either a bare lock number or a locker identifier
// like "M7".
func resolveLock(controller *winnsen.Controller, arg string) (int, error) {
	if lock, err := strconv.Atoi(arg); err == nil {
		return lock, nil
	}
	return controller.MapLockerID(arg)
}

// watch polls all locks until cancelled.
func watch(ctx context.Context, controller *winnsen.Controller, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		printResults(controller.StatusAllContext(ctx))
		fmt.Println()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printResult(result winnsen.LockOperationResult) {
	if result.Err != nil {
		fmt.Printf("lock %2d  FAILED   %-8s attempts=%d elapsed=%s  %s\n",
			result.Lock, result.Status, result.Attempts,
			result.Elapsed.Round(time.Millisecond), result.Message())
		return
	}
	fmt.Printf("lock %2d  ok       %-8s attempts=%d elapsed=%s\n",
		result.Lock, result.Status, result.Attempts,
		result.Elapsed.Round(time.Millisecond))
}

func printResults(results map[int]winnsen.LockOperationResult) {
	locks := make([]int, 0, len(results))
	for lock := range results {
		locks = append(locks, lock)
	}
	sort.Ints(locks)
	for _, lock := range locks {
		printResult(results[lock])
	}
}
