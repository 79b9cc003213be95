package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glowflux/glowflux/internal/glowmarkt"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Authenticate and print a bearer token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(client.Token())
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices [id]",
	Short: "List the account's devices, or show one device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			device, err := client.Device(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(device)
		}
		devices, err := client.Devices(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(sortedValues(devices))
	},
}

var deviceTypesCmd = &cobra.Command{
	Use:   "device-types [id]",
	Short: "List the device type catalogue, or show one type",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		types, err := client.DeviceTypes(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			deviceType, ok := types[args[0]]
			if !ok {
				return fmt.Errorf("device type %q: %w", args[0], glowmarkt.ErrUnknownEntity)
			}
			return printJSON(deviceType)
		}
		return printJSON(sortedValues(types))
	},
}

var resourcesCmd = &cobra.Command{
	Use:   "resources [id]",
	Short: "List the account's resources, or show one resource",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			resource, err := client.Resource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(resource)
		}
		resources, err := client.Resources(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(sortedValues(resources))
	},
}

var resourceTypesCmd = &cobra.Command{
	Use:   "resource-types [id]",
	Short: "List the resource type catalogue, or show one type",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		types, err := client.ResourceTypes(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			resourceType, ok := types[args[0]]
			if !ok {
				return fmt.Errorf("resource type %q: %w", args[0], glowmarkt.ErrUnknownEntity)
			}
			return printJSON(resourceType)
		}
		return printJSON(sortedValues(types))
	},
}

var virtualEntitiesCmd = &cobra.Command{
	Use:   "virtual-entities [id]",
	Short: "List the account's virtual entities, or show one entity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		entities, err := client.VirtualEntities(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			entity, ok := entities[args[0]]
			if !ok {
				return fmt.Errorf("virtual entity %q: %w", args[0], glowmarkt.ErrUnknownEntity)
			}
			return printJSON(entity)
		}
		return printJSON(sortedValues(entities))
	},
}

var readingsPeriod string

var readingsCmd = &cobra.Command{
	Use:   "readings RESOURCE-ID FROM [TO]",
	Short: "Fetch interval readings for one resource",
	Long: "Fetch interval-aggregated readings for one resource as JSON.\n" +
		"Dates are RFC 3339 timestamps or negative minute offsets from now;\n" +
		"TO defaults to now.",
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := glowmarkt.ParsePeriod(readingsPeriod)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		from, err := parseDate(args[1], now)
		if err != nil {
			return fmt.Errorf("invalid FROM date: %w", err)
		}
		to := now
		if len(args) == 3 {
			if to, err = parseDate(args[2], now); err != nil {
				return fmt.Errorf("invalid TO date: %w", err)
			}
		}

		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		readings, err := client.Readings(cmd.Context(), args[0], from, to, period)
		if err != nil {
			return err
		}
		return printJSON(readings)
	},
}

func init() {
	readingsCmd.Flags().StringVar(&readingsPeriod, "period", "half-hour",
		"aggregation period: half-hour, hour, day or week")
}
