package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// RunSetup walks the operator through creating a configuration file,
// backing up any existing one first. in/out are injectable for tests.
func RunSetup(path string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "tele-igniter setup wizard")
	fmt.Fprintln(out, "This wizard creates", path, "— press Ctrl+C to cancel.")

	scanner := bufio.NewScanner(in)

	tgToken, err := prompt(scanner, out, "Telegram bot API token")
	if err != nil {
		return err
	}
	tiURL, err := prompt(scanner, out, "TastyIgniter API URL")
	if err != nil {
		return err
	}
	tiToken, err := prompt(scanner, out, "TastyIgniter API token")
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		backup, err := backupName(path)
		if err != nil {
			return err
		}
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("back up old config: %w", err)
		}
		fmt.Fprintf(out, "Old %s backed up to %s\n", path, backup)
	}

	cfg := &Config{
		TelegramToken: tgToken,
		APIURL:        strings.TrimRight(tiURL, "/"),
		APIToken:      tiToken,
		LocationIDs:   []int64{1},
		CacheEnabled:  true,
	}
	cfg.applyDefaults()

	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintln(out, "Configuration file created successfully.")
	fmt.Fprintln(out, "Adjust location-ids and admins in", path, "before running the bot.")
	return nil
}

func prompt(scanner *bufio.Scanner, out io.Writer, label string) (string, error) {
	for {
		fmt.Fprintf(out, "%s: ", label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("setup: input closed before %q was entered", label)
		}
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			return v, nil
		}
	}
}

// backupName picks .bak, then .bak.1, .bak.2, ... whichever is free.
func backupName(path string) (string, error) {
	backup := path + ".bak"
	if _, err := os.Stat(backup); os.IsNotExist(err) {
		return backup, nil
	}
	for i := 1; i < 1000; i++ {
		candidate := fmt.Sprintf("%s.%d", backup, i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("setup: no free backup name for %s", path)
}
