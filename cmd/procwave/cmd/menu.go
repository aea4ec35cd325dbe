package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/procwave/procwave/internal/config"
	"github.com/procwave/procwave/internal/console"
)

// menuCmd is the interactive front end. It is pure presentation: every
// action funnels into the same harness the start command uses.
var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive menu for configuring and running the ramp",
	RunE:  runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

func runMenu(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg := loadConfig(log)

	h, err := newHarness(cfg, log)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		clearScreen()
		fmt.Print(console.Banner)
		fmt.Println()
		printMenu(cfg)

		choice := strings.ToLower(promptString(reader, "Select option", ""))
		switch choice {
		case "1":
			cfg.Ceiling = promptInt(reader, "Max wave size", cfg.Ceiling)
		case "2":
			cfg.IntervalSeconds = promptInt(reader, "Seconds between waves", cfg.IntervalSeconds)
		case "3":
			cfg.MemoryMB = promptInt(reader, "Memory per worker (MB)", cfg.MemoryMB)
		case "4":
			cfg.FullBusy = !cfg.FullBusy
		case "5":
			cfg.LoadPercent = promptInt(reader, "Throttled CPU load percent", cfg.LoadPercent)
		case "6":
			cfg.DryRun = !cfg.DryRun
		case "7":
			cfg.Label = promptString(reader, "Area label", cfg.Label)
		case "s":
			sane, notes := cfg.Sanitize()
			for _, note := range notes {
				fmt.Printf("[!] %s\n", note)
			}
			cfg = sane
			if err := h.startRamp(cfg); err != nil {
				fmt.Printf("[!] ramp aborted: %v\n", err)
			}
			fmt.Println("\n[*] Use 'Terminate all' from the menu or press Ctrl+C to stop workers.")
			promptString(reader, "Press Enter to return to menu", "")
		case "t":
			h.coord.Stop()
			fmt.Println("[*] All workers terminated.")
			time.Sleep(400 * time.Millisecond)
		case "q":
			if h.reg.AnyAlive() {
				fmt.Println("[!] There are still live worker processes.")
				yn := strings.ToLower(promptString(reader, "Terminate them and quit? (y/N)", "n"))
				if yn == "y" {
					h.coord.Stop()
				}
			}
			fmt.Println("[*] Exiting.")
			return nil
		default:
			fmt.Println("[!] Unknown option.")
			time.Sleep(400 * time.Millisecond)
		}
	}
}

func printMenu(cfg config.Config) {
	strategy := "full-busy"
	if !cfg.FullBusy {
		strategy = fmt.Sprintf("throttled %d%%", cfg.LoadPercent)
	}
	dryRun := "off"
	if cfg.DryRun {
		dryRun = "on"
	}

	fmt.Println("SETTINGS:")
	fmt.Printf("  1) Max wave size        [%d]\n", cfg.Ceiling)
	fmt.Printf("  2) Seconds between waves [%d]\n", cfg.IntervalSeconds)
	fmt.Printf("  3) Memory per worker MB  [%d]\n", cfg.MemoryMB)
	fmt.Printf("  4) CPU strategy          [%s]\n", strategy)
	fmt.Printf("  5) Throttled load        [%d]\n", cfg.LoadPercent)
	fmt.Printf("  6) Dry-run               [%s]\n", dryRun)
	fmt.Printf("  7) Area label            [%s]\n", cfg.Label)
	fmt.Println()
	fmt.Println("ACTIONS:")
	fmt.Println("  S) Start 'operation'")
	fmt.Println("  T) Terminate all")
	fmt.Println("  Q) Quit")
	fmt.Println()
}

// promptInt reads an integer with a default; invalid input falls back to
// the default with a notice, never an error.
func promptInt(reader *bufio.Reader, prompt string, def int) int {
	raw := promptString(reader, fmt.Sprintf("%s [%d]", prompt, def), "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Println("[!] invalid input, using default.")
		return def
	}
	return n
}

func promptString(reader *bufio.Reader, prompt, def string) string {
	fmt.Printf("%s: ", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func clearScreen() {
	cmd := exec.Command("clear")
	cmd.Stdout = os.Stdout
	cmd.Run()
}
