package cmd

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/service"

	"github.com/spf13/cobra"
)

const minOldKeyGraceMinutes = 5

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys of services calling the internal order API",
}

var apiKeyGenerateCmd = &cobra.Command{
	Use:   "generate <service_name>",
	Short: "Generate an internal API key for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInternalAuthService(func(internalAuthService service.InternalAuthService) error {
			serviceName := args[0]
			key, err := internalAuthService.GenerateInternalAPIKey(cmd.Context(), serviceName)
			if err != nil {
				return apiKeyCommandError(serviceName, err)
			}

			fmt.Printf("service_name: %s\n", serviceName)
			fmt.Printf("api_key: %s\n", key)
			fmt.Printf("expires_at: %s\n", time.Now().AddDate(100, 0, 0).Format(time.RFC3339))
			fmt.Printf("hint: run `shop apikey allow %s %s` to grant order access\n", serviceName, entity.AccessOrders)
			return nil
		})
	},
}

var apiKeyAllowCmd = &cobra.Command{
	Use:   "allow <service_name> <access>",
	Short: "Grant an access scope (e.g. orders) to a service",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInternalAuthService(func(internalAuthService service.InternalAuthService) error {
			serviceName := args[0]
			access := strings.ToLower(strings.TrimSpace(args[1]))

			if err := internalAuthService.AddInternalAllowedAccess(cmd.Context(), serviceName, access); err != nil {
				return apiKeyCommandError(serviceName, err)
			}

			fmt.Printf("allowed access updated: %s -> %s\n", serviceName, access)
			return nil
		})
	},
}

var apiKeyDeactivateCmd = &cobra.Command{
	Use:   "deactivate <service_name>",
	Short: "Deactivate all active API keys for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInternalAuthService(func(internalAuthService service.InternalAuthService) error {
			serviceName := args[0]
			count, err := internalAuthService.DeactivateInternalAPIKeys(cmd.Context(), serviceName)
			if err != nil {
				return apiKeyCommandError(serviceName, err)
			}

			fmt.Printf("deactivated %d active API key(s) for service %s\n", count, serviceName)
			return nil
		})
	},
}

var apiKeyRegenerateCmd = &cobra.Command{
	Use:   "regenerate <service_name>",
	Short: "Regenerate an internal API key and expire old active keys after a grace period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graceMinutes, _ := cmd.Flags().GetInt("grace")
		oldKeyTTL, err := oldKeyGracePeriod(graceMinutes)
		if err != nil {
			return err
		}

		return withInternalAuthService(func(internalAuthService service.InternalAuthService) error {
			serviceName := args[0]
			newKey, err := internalAuthService.RegenerateInternalAPIKey(cmd.Context(), serviceName, oldKeyTTL)
			if err != nil {
				return apiKeyCommandError(serviceName, err)
			}

			fmt.Printf("service_name: %s\n", serviceName)
			fmt.Printf("old_key_expires_in_minutes: %d\n", int(oldKeyTTL.Minutes()))
			fmt.Printf("new_api_key: %s\n", newKey)
			fmt.Printf("new_key_expires_at: %s\n", time.Now().AddDate(100, 0, 0).Format(time.RFC3339))
			return nil
		})
	},
}

func init() {
	apiKeyRegenerateCmd.Flags().Int("grace", 0, "minutes the old key stays valid (>5); prompts when omitted")

	apiKeyCmd.AddCommand(apiKeyGenerateCmd)
	apiKeyCmd.AddCommand(apiKeyAllowCmd)
	apiKeyCmd.AddCommand(apiKeyDeactivateCmd)
	apiKeyCmd.AddCommand(apiKeyRegenerateCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

func withInternalAuthService(fn func(service.InternalAuthService) error) error {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(newInternalAuthService(db))
}

func newInternalAuthService(db *sql.DB) service.InternalAuthService {
	return service.NewInternalAuthService(repository.NewInternalAPIKeyRepository(db))
}

func apiKeyCommandError(serviceName string, err error) error {
	switch {
	case errors.Is(err, service.ErrServiceHasActiveAPIKey):
		return fmt.Errorf("service %q already has an active API key", serviceName)
	case errors.Is(err, service.ErrServiceHasNoActiveAPIKey):
		return fmt.Errorf("service %q has no active API key", serviceName)
	case errors.Is(err, service.ErrUnknownAccessScope):
		return fmt.Errorf("unknown access scope, supported: %s", entity.AccessOrders)
	case errors.Is(err, service.ErrInvalidRegenerationTTL):
		return fmt.Errorf("old key grace period must be greater than %d minutes", minOldKeyGraceMinutes)
	default:
		return err
	}
}

func oldKeyGracePeriod(flagMinutes int) (time.Duration, error) {
	if flagMinutes != 0 {
		return graceMinutesToDuration(flagMinutes)
	}
	return promptOldKeyTTLMinutes()
}

func promptOldKeyTTLMinutes() (time.Duration, error) {
	const defaultMinutes = 60
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Expire old key in minutes (>%d) [%d]: ", minOldKeyGraceMinutes, defaultMinutes)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Duration(defaultMinutes) * time.Minute, nil
	}

	minutes, err := strconv.Atoi(input)
	if err != nil {
		return 0, errors.New("invalid number of minutes")
	}
	return graceMinutesToDuration(minutes)
}

func graceMinutesToDuration(minutes int) (time.Duration, error) {
	if minutes <= minOldKeyGraceMinutes {
		return 0, fmt.Errorf("value must be greater than %d minutes", minOldKeyGraceMinutes)
	}
	return time.Duration(minutes) * time.Minute, nil
}
