package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/modhub/internal/models"
)

// List prints the whole catalog, or one category when given.
func (a *App) List(ctx context.Context, args []string) error {
	var (
		mods []models.Mod
		err  error
	)
	if len(args) > 0 {
		mods, err = a.facade.ModsByCategory(ctx, strings.Join(args, " "))
	} else {
		mods, err = a.facade.ListMods(ctx)
	}
	if err != nil {
		return err
	}
	printMods(a.out, mods)
	return nil
}

func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: search <text>", errUsage)
	}
	mods, err := a.facade.SearchMods(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printMods(a.out, mods)
	return nil
}

// Filter accepts category=, q=, version= and mine, in any combination.
func (a *App) Filter(ctx context.Context, args []string) error {
	f, err := a.parseFilter(args)
	if err != nil {
		return err
	}
	mods, err := a.facade.FilterMods(ctx, f)
	if err != nil {
		return err
	}
	printMods(a.out, mods)
	return nil
}

func (a *App) parseFilter(args []string) (models.ModFilter, error) {
	var f models.ModFilter
	for _, arg := range args {
		if arg == "mine" {
			if a.user == nil {
				return f, errNotLoggedIn
			}
			f.AuthorID = a.user.ID
			continue
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return f, fmt.Errorf("%w: filter [category=X] [q=X] [version=X] [mine]", errUsage)
		}
		switch key {
		case "category":
			f.Category = value
		case "q":
			f.Query = value
		case "version":
			f.VersionPrefix = value
		default:
			return f, fmt.Errorf("%w: unknown filter %q", errUsage, key)
		}
	}
	return f, nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseID(args, "show <id>")
	if err != nil {
		return err
	}
	m, err := a.facade.GetMod(ctx, id)
	if err != nil {
		return err
	}
	printMod(a.out, m)
	return nil
}

func parseID(args []string, usage string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s (id must be a positive number)", errUsage, usage)
	}
	return id, nil
}
