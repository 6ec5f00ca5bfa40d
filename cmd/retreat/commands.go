package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/eringen/retreat"
	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/markdown"
	"github.com/eringen/retreat/state"
	"github.com/eringen/retreat/tokenstore"
	"github.com/eringen/retreat/views"
)

// session is one CLI invocation's provider, backed by the token database.
type session struct {
	cfg      retreat.SiteConfig
	client   *client.Client
	provider *state.Provider
	tokens   *tokenstore.Store
}

func (s *session) Close() error {
	return s.tokens.Close()
}

// parse parses the flags every terminal command accepts and opens a session.
func parse(fs *pflag.FlagSet, args []string) (*session, error) {
	profile := fs.String("profile", tokenstore.DefaultProfile, "token profile to use")
	configPath := fs.String("config", "", "YAML config file")
	verbose := fs.BoolP("verbose", "v", false, "log requests to stderr")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := retreat.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	tokens, err := tokenstore.Open(cfg.TokenDBPath, *profile)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	c := client.New(client.Endpoints{
		User:   cfg.UserService,
		Author: cfg.AuthorService,
		Blog:   cfg.BlogService,
	}, nil)
	p := state.New(c, tokens,
		state.WithLogger(logger),
		state.WithNotifier(state.NotifierFunc(printNotice)),
		state.WithRefreshDelay(cfg.RefreshDelay),
	)
	return &session{cfg: cfg, client: c, provider: p, tokens: tokens}, nil
}

func printNotice(_ context.Context, n state.Notice) {
	if n.Message == "" {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", n.Level, n.Message)
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// signedIn restores the persisted session and fails if there is none.
func (s *session) signedIn(ctx context.Context) error {
	s.provider.RestoreSession(ctx)
	if !s.provider.Authenticated() {
		return errors.New("not signed in; run retreat login <email>")
	}
	return nil
}

func readPassword(prompt string) (string, error) {
	if pw := os.Getenv("RETREAT_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	s, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer s.Close()
	if fs.NArg() != 1 {
		return errors.New("usage: retreat login <email>")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	if err := s.provider.Login(ctx, client.Credentials{Email: fs.Arg(0), Password: password}); err != nil {
		return err
	}
	printUser(s.provider.User())
	return nil
}

func runRegister(args []string) error {
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	s, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer s.Close()
	if fs.NArg() != 2 {
		return errors.New("usage: retreat register <name> <email>")
	}

	password, err := readPassword("Choose a password: ")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	reg := client.Registration{Name: fs.Arg(0), Email: fs.Arg(1), Password: password}
	if err := s.provider.Register(ctx, reg); err != nil {
		return err
	}
	printUser(s.provider.User())
	return nil
}

func runLogout(args []string) error {
	s, err := parse(pflag.NewFlagSet("logout", pflag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer s.Close()
	s.provider.Logout(context.Background())
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(args []string) error {
	s, err := parse(pflag.NewFlagSet("whoami", pflag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext()
	defer cancel()
	if err := s.signedIn(ctx); err != nil {
		return err
	}
	printUser(s.provider.User())
	return nil
}

func printUser(u *client.User) {
	if u == nil {
		return
	}
	fmt.Printf("%s <%s>\n", u.Name, u.Email)
	if u.Bio != "" {
		fmt.Println(u.Bio)
	}
}

func runBlogs(args []string) error {
	fs := pflag.NewFlagSet("blogs", pflag.ContinueOnError)
	q := fs.String("q", "", "search text")
	category := fs.String("category", "", "category: "+strings.Join(state.Categories, ", "))
	s, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()
	s.provider.RestoreSession(ctx)
	f := state.Filter{SearchQuery: *q, Category: *category}
	if f == (state.Filter{}) {
		err = s.provider.FetchBlogs(ctx)
	} else {
		s.provider.SetFilter(ctx, f)
		if s.provider.Blogs() == nil {
			err = errors.New("could not list blogs")
		}
	}
	if err != nil {
		return err
	}

	saved := make(map[string]bool)
	for _, sb := range s.provider.SavedBlogs() {
		saved[sb.BlogID] = true
	}
	printBlogs(s.provider.Blogs(), saved)
	return nil
}

func printBlogs(blogs []client.Blog, saved map[string]bool) {
	if len(blogs) == 0 {
		fmt.Println("No blogs found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tTITLE\t")
	for _, b := range blogs {
		mark := ""
		if saved[b.ID] {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, views.FormatDate(b.CreatedAt), b.Category, b.Title, mark)
	}
	w.Flush()
}

// savedPosts lists the blogs the signed-in user has bookmarked.
func (s *session) savedPosts(ctx context.Context) ([]client.Blog, error) {
	if err := s.signedIn(ctx); err != nil {
		return nil, err
	}
	all, err := s.client.ListBlogs(ctx, client.Filter{})
	if err != nil {
		return nil, err
	}
	return state.SavedPosts(all, s.provider.SavedBlogs()), nil
}

func runSaved(args []string) error {
	s, err := parse(pflag.NewFlagSet("saved", pflag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext()
	defer cancel()

	posts, err := s.savedPosts(ctx)
	if err != nil {
		return err
	}
	printBlogs(posts, nil)
	return nil
}

func runSave(args []string) error {
	fs := pflag.NewFlagSet("save", pflag.ContinueOnError)
	s, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer s.Close()
	if fs.NArg() != 1 {
		return errors.New("usage: retreat save <blog-id>")
	}
	ctx, cancel := commandContext()
	defer cancel()
	if err := s.signedIn(ctx); err != nil {
		return err
	}
	return s.provider.ToggleSave(ctx, fs.Arg(0))
}

// runPublish converts a markdown file to HTML and publishes it.
func runPublish(args []string) error {
	fs := pflag.NewFlagSet("publish", pflag.ContinueOnError)
	title := fs.String("title", "", "blog title")
	description := fs.String("description", "", "short description")
	category := fs.String("category", "", "category: "+strings.Join(state.Categories, ", "))
	imagePath := fs.String("image", "", "cover image file")
	s, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer s.Close()
	if fs.NArg() != 1 {
		return errors.New("usage: retreat publish --title t --description d --category c [--image file] <post.md>")
	}

	body, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	draft := state.Draft{
		Title:       *title,
		Description: *description,
		Category:    *category,
		Content:     markdown.ToHTML(string(body)),
	}

	var image *client.Upload
	if *imagePath != "" {
		f, err := os.Open(*imagePath)
		if err != nil {
			return err
		}
		up, err := retreat.PrepareImage(f, *imagePath)
		f.Close()
		if err != nil {
			return err
		}
		image = &up
	}

	ctx, cancel := commandContext()
	defer cancel()
	if err := s.signedIn(ctx); err != nil {
		return err
	}
	return s.provider.Publish(ctx, draft, image)
}

func runExport(args []string) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	out := fs.StringP("output", "o", "saved-blogs.xlsx", "output file")
	s, err := parse(fs, args)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext()
	defer cancel()

	posts, err := s.savedPosts(ctx)
	if err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := retreat.WriteSavedWorkbook(f, posts, s.cfg.URL); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d blogs to %s\n", len(posts), *out)
	return nil
}
