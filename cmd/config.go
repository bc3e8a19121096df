/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Authors:
 *   Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wtsi-hgi/wavebank/bank"
	"github.com/wtsi-hgi/wavebank/inventory"
)

const (
	envPath          = "WAVEBANK_PATH"
	envPathStructure = "WAVEBANK_PATH_STRUCTURE"
	envNameStructure = "WAVEBANK_NAME_STRUCTURE"
	envCacheSize     = "WAVEBANK_CACHE_SIZE"
	envInventory     = "WAVEBANK_INVENTORY"
	envPollInterval  = "WAVEBANK_POLL_INTERVAL"
)

var errPathRequired = errors.New("bank path required; use --bank or " + envPath)

var dotEnvKeys = []string{
	envPath,
	envPathStructure,
	envNameStructure,
	envCacheSize,
	envInventory,
	envPollInterval,
}

// bank options shared by subcommands.
var (
	bankPath          string
	bankPathStructure string
	bankNameStructure string
	bankCacheSize     int
	bankInventory     string
	bankExt           string
)

// loadDotEnv sets our environment variables from .env and .env.local in the
// current directory, without overriding any already set.
func loadDotEnv() {
	orig := originalEnvKeys(dotEnvKeys)

	loadDotEnvFile(".env", orig)
	loadDotEnvFile(".env.local", orig)
}

func originalEnvKeys(keys []string) map[string]struct{} {
	orig := map[string]struct{}{}

	for _, key := range keys {
		if _, ok := os.LookupEnv(key); ok {
			orig[key] = struct{}{}
		}
	}

	return orig
}

func loadDotEnvFile(path string, orig map[string]struct{}) {
	env, err := godotenv.Read(path)
	if err != nil {
		return
	}

	for _, key := range dotEnvKeys {
		val, ok := env[key]
		if !ok {
			continue
		}

		if _, ok := orig[key]; ok {
			continue
		}

		_ = os.Setenv(key, val)
	}
}

// bankConfig returns a bank.Config from our flags, falling back to the
// environment.
func bankConfig() (bank.Config, error) {
	path, err := requiredFlagOrEnv(bankPath, envPath, errPathRequired)
	if err != nil {
		return bank.Config{}, err
	}

	cacheSize, err := intFlagOrEnv(bankCacheSize, envCacheSize)
	if err != nil {
		return bank.Config{}, err
	}

	cfg := bank.Config{
		BasePath:      path,
		PathStructure: flagOrEnv(bankPathStructure, envPathStructure),
		NameStructure: flagOrEnv(bankNameStructure, envNameStructure),
		Ext:           bankExt,
		CacheSize:     cacheSize,
		Logger:        appLogger,
		NewProgress:   newCLIProgress,
	}

	if invPath := flagOrEnv(bankInventory, envInventory); invPath != "" {
		inv, err := inventory.Load(invPath)
		if err != nil {
			return bank.Config{}, fmt.Errorf("loading inventory: %w", err)
		}

		cfg.Inventory = inv
	}

	return cfg, nil
}

// openBank returns a bank configured by our flags, dying on error.
func openBank(pollInterval time.Duration) *bank.Bank {
	cfg, err := bankConfig()
	if err != nil {
		die("%s", err)
	}

	cfg.PollInterval = pollInterval

	b, err := bank.New(cfg)
	if err != nil {
		die("failed to open bank: %s", err)
	}

	return b
}

func flagOrEnv(flagValue, envKey string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}

	return strings.TrimSpace(os.Getenv(envKey))
}

func requiredFlagOrEnv(flagValue string, envKey string, missing error) (string, error) {
	v := flagOrEnv(flagValue, envKey)
	if v == "" {
		return "", missing
	}

	return v, nil
}

func intFlagOrEnv(flagValue int, envKey string) (int, error) {
	if flagValue != 0 {
		return flagValue, nil
	}

	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid number in %s: %w", envKey, err)
	}

	return n, nil
}

func parseDurationFlagOrEnv(flagValue string, envKey string, defaultValue time.Duration) (time.Duration, error) {
	v := flagOrEnv(flagValue, envKey)
	if v == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", envKey, err)
	}

	return d, nil
}
