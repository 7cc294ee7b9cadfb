package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/modhub/internal/models"
	"github.com/dmitrijs2005/modhub/internal/services"
)

// Facade is the part of services.Facade the REPL calls.
type Facade interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.UserSummary, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*models.UserSummary, error)

	ListMods(ctx context.Context) ([]models.Mod, error)
	ModsByCategory(ctx context.Context, category string) ([]models.Mod, error)
	SearchMods(ctx context.Context, query string) ([]models.Mod, error)
	FilterMods(ctx context.Context, filter models.ModFilter) ([]models.Mod, error)
	GetMod(ctx context.Context, id int64) (*models.Mod, error)

	UploadMod(ctx context.Context, token string, req services.UploadRequest) (*models.Mod, error)
	DownloadMod(ctx context.Context, token string, id int64) (*models.Mod, error)
	RateMod(ctx context.Context, token string, id int64, rating float64) error
	AddModVersion(ctx context.Context, token string, id int64, version string) error
	DeleteMod(ctx context.Context, token string, id int64) error

	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type App struct {
	facade Facade
	reader *bufio.Reader
	out    io.Writer

	token string
	user  *models.UserSummary
}

func NewApp(f Facade, in io.Reader, out io.Writer) *App {
	return &App{facade: f, reader: bufio.NewReader(in), out: out}
}

// Run starts the REPL and blocks until the user exits or input ends. An open
// session is closed on the way out.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to modhub (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)

	// The session is closed even when the REPL stopped because ctx was
	// cancelled.
	if a.isLoggedIn() {
		_ = a.Logout(context.WithoutCancel(ctx))
	}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) status() string {
	if a.user == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", a.user.Username)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
