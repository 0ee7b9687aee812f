package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	. "github.com/warpfork/go-errcat"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/src-d/go-git.v4/plumbing"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/config"
	"go.polydawn.net/scry/discover"
	"go.polydawn.net/scry/odb"
	"go.polydawn.net/scry/repository"
	"go.polydawn.net/scry/trust"
)

/*
	Output serialization formats
*/
const (
	FmtJson = "json"
	FmtDumb = "dumb"
)

type baseCLI struct {
	Format  string // Output api format, eg. json
	Verbose bool   // Emit log events to stderr

	Dir           string // Where to start looking for a repository
	RequiredTrust string // Trust level name
	CeilingDirs   string // Colon-separated; overrides the environment when set
	NoMatchCeil   bool   // Tolerate ceiling dirs that don't contain the result
	CrossFS       string // git-config boolean; falls back to the environment when empty

	CatCLI struct {
		Hash string
	}
	HasCLI struct {
		Hashes []string
		Jobs   int
	}
}

func configureDiscovery(cli *baseCLI, cmd *kingpin.CmdClause) {
	cmd.Flag("required-trust", "Skip repositories trusted less than this [reduced, full]").
		Default(trust.Reduced.String()).
		EnumVar(&cli.RequiredTrust, trust.Reduced.String(), trust.Full.String())
	cmd.Flag("ceiling-dirs", "Colon-separated directories to stop searching at (default: $"+config.EnvCeilingDirectories+")").
		StringVar(&cli.CeilingDirs)
	cmd.Flag("no-match-ceiling", "Accept a repository even if no ceiling directory contains it").
		BoolVar(&cli.NoMatchCeil)
	cmd.Flag("cross-fs", "Keep searching across filesystem boundaries (default: $"+config.EnvDiscoveryAcrossFilesystem+")").
		PlaceHolder("BOOL").
		StringVar(&cli.CrossFS)
}

func main() {
	ctx := context.Background()
	exitCode := Main(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(int(exitCode))
}

func Main(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) scry.ExitCode {
	cli := baseCLI{}

	app := kingpin.New("scry", "Find git repositories, and read their objects")
	app.HelpFlag.Short('h')

	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	app.Flag("format", "Output api format").
		Default(FmtDumb).
		EnumVar(&cli.Format, FmtJson, FmtDumb)
	app.Flag("verbose", "Emit log events to stderr").
		Short('v').
		BoolVar(&cli.Verbose)

	appDiscover := app.Command("discover", "print the location of the repository containing a directory")
	appDiscover.Arg("dir", "Directory to start from").
		Default(".").
		StringVar(&cli.Dir)
	configureDiscovery(&cli, appDiscover)

	appCat := app.Command("cat", "print the contents of an object")
	appCat.Arg("hash", "Object id").
		Required().
		StringVar(&cli.CatCLI.Hash)
	appCat.Flag("dir", "Directory to start looking for a repository from").
		Default(".").
		StringVar(&cli.Dir)
	configureDiscovery(&cli, appCat)

	appHas := app.Command("has", "report which objects exist")
	appHas.Arg("hash", "Object ids").
		Required().
		StringsVar(&cli.HasCLI.Hashes)
	appHas.Flag("dir", "Directory to start looking for a repository from").
		Default(".").
		StringVar(&cli.Dir)
	appHas.Flag("jobs", "Concurrent lookups").
		Short('j').
		Default("4").
		IntVar(&cli.HasCLI.Jobs)
	configureDiscovery(&cli, appHas)

	var termErr error
	app.Terminate(func(status int) {
		termErr = fmt.Errorf("parsing error: %d\n", status)
	})
	cmd, err := app.Parse(args[1:])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return scry.ExitUsage
	}
	if termErr != nil {
		fmt.Fprintln(stderr, termErr)
		return scry.ExitUsage
	}

	mon, stopLogging := startLogging(cli, stderr)
	var result scry.Event_Result
	switch cmd {
	case appDiscover.FullCommand():
		result, err = executeDiscover(cli, mon)
	case appCat.FullCommand():
		result, err = executeCat(cli, mon)
	case appHas.FullCommand():
		result, err = executeHas(cli, mon)
	}
	stopLogging()
	SerializeResult(cli.Format, cmd, result, err, stdout, stderr)
	if err == nil && cmd == appHas.FullCommand() {
		for _, obj := range result.Objects {
			if !obj.Found {
				return scry.ExitNotFound
			}
		}
	}
	return scry.ExitCodeForError(err)
}

/*
	If verbose, start a goroutine copying log events to stderr.
	The returned func closes the channel and waits for the copying to finish.
*/
func startLogging(cli baseCLI, stderr io.Writer) (scry.Monitor, func()) {
	if !cli.Verbose {
		return scry.Monitor{}, func() {}
	}
	ch := make(chan scry.Event)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for evt := range ch {
			switch cli.Format {
			case FmtJson:
				if err := refmt.NewMarshallerAtlased(json.EncodeOptions{}, stderr, scry.Atlas).Marshal(&evt); err != nil {
					panic(err)
				}
				fmt.Fprintln(stderr)
			default:
				fmt.Fprintf(stderr, "%s: %s\n", evt.Log.Level, evt.Log.Msg)
			}
		}
	}()
	return scry.Monitor{Chan: ch}, func() {
		close(ch)
		wg.Wait()
	}
}

func SerializeResult(format string, cmd string, result scry.Event_Result, resultErr error, stdout io.Writer, stderr io.Writer) {
	result.SetError(resultErr)
	ev := scry.Event{Result: &result}
	switch format {
	case FmtJson:
		marshaller := refmt.NewMarshallerAtlased(json.EncodeOptions{}, stdout, scry.Atlas)
		err := marshaller.Marshal(&ev)
		if err != nil {
			panic(err)
		}
		fmt.Fprintln(stdout)
	case FmtDumb:
		if resultErr != nil {
			fmt.Fprintln(stderr, resultErr)
			return
		}
		switch cmd {
		case "discover":
			fmt.Fprintln(stdout, result.Path)
		case "cat":
			io.WriteString(stdout, result.Objects[0].Body)
		case "has":
			for _, obj := range result.Objects {
				fmt.Fprintf(stdout, "%s %v\n", obj.Hash, obj.Found)
			}
		}
	default:
		panic(fmt.Errorf("scry: invalid format %s", format))
	}
}

func discoveryOptions(cli baseCLI, mon scry.Monitor) (discover.Options, error) {
	opts := discover.DefaultOptions().ApplyEnvironment()
	opts.Monitor = mon
	level, err := trust.ParseLevel(cli.RequiredTrust)
	if err != nil {
		return opts, err
	}
	opts.RequiredTrust = level
	if cli.CeilingDirs != "" {
		opts.CeilingDirs = discover.ParseCeilingDirs([]byte(cli.CeilingDirs))
	}
	opts.MatchCeilingDirOrError = !cli.NoMatchCeil
	crossFS := cli.CrossFS
	if crossFS == "" {
		crossFS = os.Getenv(config.EnvDiscoveryAcrossFilesystem)
	}
	opts.CrossFS, err = config.ParseGitBool(crossFS)
	return opts, err
}

func executeDiscover(cli baseCLI, mon scry.Monitor) (scry.Event_Result, error) {
	opts, err := discoveryOptions(cli, mon)
	if err != nil {
		return scry.Event_Result{}, err
	}
	path, level, err := discover.Upwards(cli.Dir, opts)
	if err != nil {
		return scry.Event_Result{}, err
	}
	result := scry.Event_Result{
		Path:  path.GitDir.String(),
		Kind:  path.Kind.String(),
		Trust: level.String(),
	}
	if path.HasWorkDir() {
		result.WorkDir = path.WorkDir.String()
	}
	return result, nil
}

func openRepository(cli baseCLI, mon scry.Monitor) (*repository.Repository, error) {
	opts, err := discoveryOptions(cli, mon)
	if err != nil {
		return nil, err
	}
	return repository.Discover(cli.Dir, opts)
}

func executeCat(cli baseCLI, mon scry.Monitor) (scry.Event_Result, error) {
	id, err := parseHash(cli.CatCLI.Hash)
	if err != nil {
		return scry.Event_Result{}, err
	}
	repo, err := openRepository(cli, mon)
	if err != nil {
		return scry.Event_Result{}, err
	}
	defer repo.Close()
	h := repo.Handle()
	h.Monitor = mon
	obj, err := h.Get(id)
	if err != nil {
		return scry.Event_Result{}, err
	}
	if !obj.Verify(id) {
		return scry.Event_Result{}, ErrorDetailed(scry.ErrBackendResolutionFailed,
			"object content does not match its id",
			map[string]string{"hash": id.String()})
	}
	return scry.Event_Result{
		Path: repo.Path.GitDir.String(),
		Objects: []scry.ObjectReport{{
			Hash:  id.String(),
			Kind:  obj.Kind.String(),
			Size:  obj.Size(),
			Found: true,
			Body:  string(obj.Data),
		}},
	}, nil
}

func executeHas(cli baseCLI, mon scry.Monitor) (scry.Event_Result, error) {
	ids := make([]plumbing.Hash, len(cli.HasCLI.Hashes))
	for i, s := range cli.HasCLI.Hashes {
		id, err := parseHash(s)
		if err != nil {
			return scry.Event_Result{}, err
		}
		ids[i] = id
	}
	repo, err := openRepository(cli, mon)
	if err != nil {
		return scry.Event_Result{}, err
	}
	defer repo.Close()
	h := repo.Handle()
	h.Monitor = mon
	result := scry.Event_Result{Path: repo.Path.GitDir.String()}
	for _, res := range odb.FindAll(h, ids, cli.HasCLI.Jobs) {
		if res.Err != nil {
			return scry.Event_Result{}, res.Err
		}
		report := scry.ObjectReport{Hash: res.ID.String(), Found: res.Found}
		if res.Found {
			report.Kind = res.Object.Kind.String()
			report.Size = res.Object.Size()
		}
		result.Objects = append(result.Objects, report)
	}
	return result, nil
}

func parseHash(s string) (plumbing.Hash, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if b, err := hex.DecodeString(s); err != nil || len(b) != len(plumbing.ZeroHash) {
		return plumbing.ZeroHash, Errorf(scry.ErrUsage, "%q is not an object id (want 40 hex digits)", s)
	}
	return plumbing.NewHash(s), nil
}
