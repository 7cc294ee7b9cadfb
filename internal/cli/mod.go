package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/modhub/internal/services"
)

func (a *App) Upload(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	name, err := GetSimpleText(a.reader, "Mod name", a.out)
	if err != nil {
		return err
	}
	category, err := GetSimpleText(a.reader, "Category", a.out)
	if err != nil {
		return err
	}
	description, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	filePath, err := GetSimpleText(a.reader, "File path", a.out)
	if err != nil {
		return err
	}
	versions, err := GetList(a.reader, "Versions", a.out)
	if err != nil {
		return err
	}

	m, err := a.facade.UploadMod(ctx, a.token, services.UploadRequest{
		Name:        name,
		Description: description,
		Category:    category,
		FilePath:    filePath,
		Versions:    versions,
	})
	if err != nil {
		a.dropSessionOn(err)
		return err
	}
	a.println(fmt.Sprintf("Uploaded %q as mod %d", m.Name, m.ID))
	return nil
}

func (a *App) Download(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	id, err := parseID(args, "download <id>")
	if err != nil {
		return err
	}
	m, err := a.facade.DownloadMod(ctx, a.token, id)
	if err != nil {
		a.dropSessionOn(err)
		return err
	}
	a.println(fmt.Sprintf("%s: %s (%d downloads)", m.Name, m.FilePath, m.Downloads))
	return nil
}

func (a *App) Rate(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	id, err := parseID(args, "rate <id> <value>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: rate <id> <value>", errUsage)
	}
	rating, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("%w: rate <id> <value> (value must be a number)", errUsage)
	}
	if err := a.facade.RateMod(ctx, a.token, id, rating); err != nil {
		a.dropSessionOn(err)
		return err
	}
	a.println("Rating saved")
	return nil
}

func (a *App) AddVersion(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	id, err := parseID(args, "addversion <id> <version>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: addversion <id> <version>", errUsage)
	}
	if err := a.facade.AddModVersion(ctx, a.token, id, args[1]); err != nil {
		a.dropSessionOn(err)
		return err
	}
	a.println(fmt.Sprintf("Version %s added to mod %d", args[1], id))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	id, err := parseID(args, "delete <id>")
	if err != nil {
		return err
	}
	if err := a.facade.DeleteMod(ctx, a.token, id); err != nil {
		a.dropSessionOn(err)
		return err
	}
	a.println(fmt.Sprintf("Mod %d deleted", id))
	return nil
}
