// cmd/tools/catalog-updater/main.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"craftconnect/pkg/registry"
)

var catalogPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd} {
		fs.StringVar(&catalogPath, "path", "pkg/registry/catalog.json", "Path to catalog file")
	}

	// Add command flags
	idAdd := addCmd.String("id", "", "Solution ID (e.g., instagram)")
	title := addCmd.String("title", "", "Title (e.g., Instagram Marketing)")
	icon := addCmd.String("icon", "", "Icon shown next to the title")
	description := addCmd.String("description", "", "Description")
	route := addCmd.String("route", "coming-soon", "Screen the solution opens")
	available := addCmd.Bool("available", false, "Whether the solution is usable today")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Solution ID to update")
	field := updateCmd.String("field", "", "Field to update (title, icon, description, route, available)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *title == "" || *description == "" {
			fmt.Println("Error: id, title, and description are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		solution := registry.Solution{
			ID:          *idAdd,
			Title:       *title,
			Icon:        *icon,
			Description: *description,
			Route:       *route,
			Available:   *available,
			Tags:        []string{},
		}
		if err := addSolution(solution); err != nil {
			fmt.Printf("Error adding solution: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added solution: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" {
			fmt.Println("Error: id and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateSolution(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating solution: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated solution %s, field %s to %q\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateCatalog(); err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadCatalog(path string) (*registry.SolutionCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat registry.SolutionCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &cat, nil
}

func addSolution(solution registry.Solution) error {
	cat, err := loadCatalog(catalogPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = &registry.SolutionCatalog{Version: "1.0.0", Solutions: []registry.Solution{}}
	}

	for _, existing := range cat.Solutions {
		if existing.ID == solution.ID {
			return fmt.Errorf("solution with ID %s already exists", solution.ID)
		}
	}

	cat.Solutions = append(cat.Solutions, solution)
	return saveCatalog(cat, catalogPath)
}

func updateSolution(id, field, value string) error {
	cat, err := loadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	found := false
	for i := range cat.Solutions {
		if cat.Solutions[i].ID != id {
			continue
		}
		found = true
		switch field {
		case "title":
			cat.Solutions[i].Title = value
		case "icon":
			cat.Solutions[i].Icon = value
		case "description":
			cat.Solutions[i].Description = value
		case "route":
			cat.Solutions[i].Route = value
		case "available":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid available value: %w", err)
			}
			cat.Solutions[i].Available = b
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("solution with ID %s not found", id)
	}
	return saveCatalog(cat, catalogPath)
}

func validateCatalog() error {
	c, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}

	for _, s := range c.Solutions() {
		if s.Title == "" {
			return fmt.Errorf("solution %s missing required field: Title", s.ID)
		}
		if s.Route == "" {
			return fmt.Errorf("solution %s missing required field: Route", s.ID)
		}
	}

	fmt.Printf("Catalog validation passed. Found %d solutions (version %s).\n", len(c.IDs()), c.Version())
	return nil
}

// saveCatalog bumps lastUpdated and rewrites the file.
func saveCatalog(cat *registry.SolutionCatalog, path string) error {
	cat.LastUpdated = time.Now().Format("2006-01-02")

	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: catalog-updater <command> [flags]

Commands:
  add      Add a new solution to the catalog
  update   Update an existing solution's field
  validate Validate the catalog file
  help     Show this help message

Examples:
  catalog-updater add -id etsy -title "Etsy Shop" -icon "🛍️" -description "List your crafts on Etsy"
  catalog-updater update -id instagram -field available -value true
  catalog-updater validate -path pkg/registry/catalog.json

Use 'catalog-updater <command> -h' for more information about a command.
` + "\n")
}
