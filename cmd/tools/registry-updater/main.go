// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"buyer-group-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		help(out)
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		path := fs.String("path", defaultRegistryPath, "Path to registry file")
		a := registry.Activity{}
		fs.StringVar(&a.ID, "id", "", "Activity ID (e.g., compose-buyer-group)")
		fs.StringVar(&a.DisplayName, "displayName", "", "Display Name (e.g., Compose Buyer Group)")
		fs.StringVar(&a.Description, "description", "", "Description")
		fs.StringVar(&a.Category, "category", "", "Category (e.g., buyer-group)")
		fs.StringVar(&a.TaskType, "taskType", "", "Zeebe task type (e.g., buyer-group.compose)")
		fs.StringVar(&a.ConfigKey, "configKey", "", "workers.* key in config.yaml")
		fs.StringVar(&a.Version, "version", "1.0.0", "Version")
		fs.StringVar(&a.ImplementationStatus, "status", registry.StatusPlanned, "Implementation Status (planned, in-progress, completed, verified)")
		fs.StringVar(&a.Timeout, "timeout", "30s", "Job timeout")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if a.ID == "" || a.DisplayName == "" || a.Category == "" || a.TaskType == "" {
			return fmt.Errorf("id, displayName, category and taskType are required for add")
		}

		reg, err := registry.LoadRegistry(*path)
		if os.IsNotExist(err) {
			reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
		}
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Add(a); err != nil {
			return err
		}
		if err := registry.Save(reg, *path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added activity: %s\n", a.ID)

	case "update":
		fs := flag.NewFlagSet("update", flag.ContinueOnError)
		path := fs.String("path", defaultRegistryPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, timeout, retries, ...)")
		value := fs.String("value", "", "New value for the field")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" || *field == "" || *value == "" {
			return fmt.Errorf("id, field and value are required for update")
		}

		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Update(*id, *field, *value); err != nil {
			return err
		}
		if err := registry.Save(reg, *path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", *id, *field, *value)

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := fs.String("path", defaultRegistryPath, "Path to registry file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		path := fs.String("path", defaultRegistryPath, "Path to registry file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		activities := append([]registry.Activity(nil), reg.Activities...)
		sort.Slice(activities, func(i, j int) bool { return activities[i].TaskType < activities[j].TaskType })

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TASK TYPE\tID\tSTATUS\tTIMEOUT")
		for _, a := range activities {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.TaskType, a.ID, a.ImplementationStatus, a.Timeout)
		}
		return tw.Flush()

	case "help", "-h", "--help":
		help(out)

	default:
		help(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func help(out io.Writer) {
	fmt.Fprint(out, `
Usage: registry-updater <command> [flags]

Commands:
  add       Add a new activity to the registry
  update    Update an existing activity's field
  validate  Validate the registry file
  list      List activities by task type
  help      Show this help message

Examples:
  registry-updater add -id sync-crm -displayName "Sync Buyer Group to CRM" -category integration -taskType buyer-group.sync-crm -configKey buyer-group-sync-crm
  registry-updater update -id sync-crm -field status -value completed
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.
`)
}
