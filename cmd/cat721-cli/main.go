// cat721-cli is a command-line client for minting CAT721 NFTs against a
// CAT protocol indexer and a bitcoind node.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/cat721-cli/config"
	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/internal/mint"
	"github.com/Klingon-tech/cat721-cli/internal/minter"
	"github.com/Klingon-tech/cat721-cli/internal/resource"
	"github.com/Klingon-tech/cat721-cli/internal/rpcclient"
	"github.com/Klingon-tech/cat721-cli/internal/spend"
	"github.com/Klingon-tech/cat721-cli/internal/storage"
	"github.com/Klingon-tech/cat721-cli/internal/tracker"
	"github.com/Klingon-tech/cat721-cli/internal/wallet"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

const version = "0.1.0"

// app carries the loaded configuration and lazily built clients.
type app struct {
	cfg    *config.Config
	ctx    context.Context
	out    io.Writer
	errOut io.Writer

	tracker *tracker.Client
	chain   *rpcclient.Client
	db      storage.DB
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
// Deferred cleanup finishes before main exits.
func run(args []string, stdout, stderr io.Writer) int {
	flags, err := config.ParseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(stderr)
			return 0
		}
		return 1
	}
	if flags.Help {
		usage(stderr)
		return 0
	}
	if flags.Version {
		fmt.Fprintf(stdout, "cat721-cli version %s\n", version)
		return 0
	}
	if len(flags.Args) == 0 {
		usage(stderr)
		return 1
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fmt.Fprintf(stderr, "Error: init logging: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, ctx: ctx, out: stdout, errOut: stderr}
	defer a.close()
	return a.exitCode(a.dispatch(flags.Args))
}

func (a *app) dispatch(args []string) error {
	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "status":
		return a.cmdStatus()
	case "collection":
		return a.cmdCollection(cmdArgs)
	case "minter":
		return a.cmdMinter(cmdArgs)
	case "nfts":
		return a.cmdNFTs(cmdArgs)
	case "collections":
		return a.cmdCollections(cmdArgs)
	case "spends":
		return a.cmdSpends(cmdArgs)
	case "wallet":
		return a.cmdWallet(cmdArgs)
	case "plan":
		return a.cmdPlan(cmdArgs)
	case "help":
		usage(a.errOut)
		return nil
	default:
		usage(a.errOut)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// exitCode reports err and maps it to a process exit code. Terminal
// outcomes are printed to stdout and exit 0.
func (a *app) exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case mint.IsTerminal(err):
		fmt.Fprintln(a.out, err)
		return 0
	default:
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: cat721-cli [global flags] <command> [flags]

Global flags:
  --network <net>       mainnet (default), testnet or regtest
  --datadir <path>      Data directory (default: ~/.cat721)
  --config <path>       Config file (default: <datadir>/cat721.conf)
  --tracker <url>       Indexer URL (default: http://127.0.0.1:3000)
  --rpc <url>           bitcoind RPC URL
  --rpc-user <user>     bitcoind RPC user
  --rpc-password <pw>   bitcoind RPC password
  --fee-rate <n>        Fee rate in sat/vB
  --wallet <path>       Wallet file
  --log-level <lvl>     trace, debug, info (default), warn, error
  --log-file <path>     Also write logs to a file
  --log-json            JSON log output

Commands:
  status                          Show indexer status
  collection <id>                 Show collection info
  minter --id <id>                Show the minter the next mint would use
  nfts --id <id> [--address <a>]  List NFTs of a collection held by an address
  collections [--address <a>]     List collections held by an address
  spends [show|reset]             Show or clear locally recorded spends
  wallet create                   Create a new wallet
  wallet address                  Show the wallet address
  plan --id <id> [--resource <dir>] [--type <mime>] [--owner <addr>] [--stop <n>]
                                  Prepare the next mint and print its plan
`)
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// ── clients ─────────────────────────────────────────────────────────────

func (a *app) trackerClient() *tracker.Client {
	if a.tracker == nil {
		a.tracker = tracker.NewWithTimeout(a.cfg.Tracker.URL, a.cfg.Tracker.Timeout)
	}
	return a.tracker
}

func (a *app) chainClient() *rpcclient.Client {
	if a.chain == nil {
		opts := []rpcclient.Option{rpcclient.WithTimeout(a.cfg.RPC.Timeout)}
		if a.cfg.RPC.User != "" {
			opts = append(opts, rpcclient.WithAuth(a.cfg.RPC.User, a.cfg.RPC.Password))
		}
		a.chain = rpcclient.New(a.cfg.RPC.URL, opts...)
	}
	return a.chain
}

// spendTracker opens the persisted spend tracker of the configured network.
func (a *app) spendTracker() (*spend.Tracker, error) {
	db, err := a.spendDB()
	if err != nil {
		return nil, err
	}
	t, err := spend.Open(db, a.cfg.Spend.ResetThreshold)
	if err != nil {
		return nil, fmt.Errorf("open spend tracker: %w", err)
	}
	return t, nil
}

// spendDB returns the network's namespace of the spend database.
func (a *app) spendDB() (*storage.PrefixDB, error) {
	if a.db == nil {
		if err := config.EnsureDataDirs(a.cfg); err != nil {
			return nil, err
		}
		db, err := storage.NewBadger(a.cfg.SpendDBDir())
		if err != nil {
			return nil, fmt.Errorf("open spend database: %w", err)
		}
		a.db = db
	}
	return storage.NewPrefixDB(a.db, []byte(string(a.cfg.Network)+"/")), nil
}

// syncSpends moves the tracker to an indexer height and persists the
// result, so a threshold reset survives the process.
func syncSpends(t *spend.Tracker, height uint64) error {
	t.Sync(height)
	if err := t.Flush(); err != nil {
		return fmt.Errorf("save spend tracker: %w", err)
	}
	return nil
}

func (a *app) finder(spent minter.SpentFilter) (*minter.Finder, error) {
	registry, err := minter.NewRegistry(minter.Fingerprints{
		Closed:         a.cfg.Minter.ClosedMd5,
		Open:           a.cfg.Minter.OpenMd5,
		ParallelClosed: a.cfg.Minter.ParallelClosedMd5,
	})
	if err != nil {
		return nil, fmt.Errorf("minter fingerprints: %w", err)
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no minter fingerprints configured (set minter.*_md5 in %s)", a.cfg.ConfigFile())
	}
	recon := minter.NewReconstructor(a.chainClient(), a.cfg.ChainParams())
	return minter.NewFinder(a.trackerClient(), spent, recon, registry), nil
}

// close releases the spend database. It is safe to call more than once.
func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		log.Storage.Error().Err(err).Msg("Close spend database")
	}
	a.db = nil
}

// ── status ──────────────────────────────────────────────────────────────

func (a *app) cmdStatus() error {
	st, err := a.trackerClient().Status(a.ctx)
	if err != nil {
		return fmt.Errorf("tracker status: %w", err)
	}
	fmt.Fprintf(a.out, "Tracker: %s\n", a.cfg.Tracker.URL)
	fmt.Fprintf(a.out, "Network: %s\n", a.cfg.Network)
	fmt.Fprintf(a.out, "Indexed: %d\n", st.TrackerBlockHeight)
	fmt.Fprintf(a.out, "Node:    %d\n", st.NodeBlockHeight)
	fmt.Fprintf(a.out, "Latest:  %d\n", st.LatestBlockHeight)
	return nil
}

// ── collection ──────────────────────────────────────────────────────────

// collection fetches collection info. An unreachable indexer reads as a
// missing collection.
func (a *app) collection(id string) (*types.CollectionInfo, error) {
	info, err := a.trackerClient().Collection(a.ctx, id)
	if err != nil {
		tracker.LogUnavailable(err, "collection")
		info = nil
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", mint.ErrCollectionNotFound, id)
	}
	return info, nil
}

func (a *app) cmdCollection(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: cat721-cli collection <id>")
	}
	info, err := a.collection(args[0])
	if err != nil {
		return err
	}
	return a.printJSON(info)
}

// ── minter ──────────────────────────────────────────────────────────────

func (a *app) cmdMinter(args []string) error {
	fs := a.flagSet("minter")
	id := fs.String("id", "", "Collection id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("usage: cat721-cli minter --id <collection>")
	}

	info, err := a.collection(*id)
	if err != nil {
		return err
	}
	spent, err := a.spendTracker()
	if err != nil {
		return err
	}
	if st, err := a.trackerClient().Status(a.ctx); err != nil {
		tracker.LogUnavailable(err, "status")
	} else if err := syncSpends(spent, st.TrackerBlockHeight); err != nil {
		return err
	}

	f, err := a.finder(spent)
	if err != nil {
		return err
	}
	m, err := f.Select(a.ctx, info)
	if err != nil {
		return fmt.Errorf("select minter: %w", err)
	}
	if m == nil {
		return fmt.Errorf("%w: %s", mint.ErrNoMinter, *id)
	}
	return a.printJSON(map[string]interface{}{
		"kind":        m.Kind.String(),
		"outpoint":    m.UTXO.Outpoint.String(),
		"satoshis":    m.UTXO.Satoshis,
		"nextLocalId": m.NextLocalID(),
		"state":       m.State(),
	})
}

// ── nfts / collections ──────────────────────────────────────────────────

// ownerAddress returns addr, or the wallet address when addr is empty.
func (a *app) ownerAddress(addr string) (string, error) {
	if addr != "" {
		return addr, nil
	}
	info, err := wallet.ReadInfo(a.cfg.WalletFile())
	if err != nil {
		return "", fmt.Errorf("no --address given and no wallet: %w", err)
	}
	return info.Address, nil
}

func (a *app) cmdNFTs(args []string) error {
	fs := a.flagSet("nfts")
	id := fs.String("id", "", "Collection id")
	addr := fs.String("address", "", "Owner address (default: wallet)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("usage: cat721-cli nfts --id <collection> [--address <addr>]")
	}
	owner, err := a.ownerAddress(*addr)
	if err != nil {
		return err
	}

	utxos, height, err := a.trackerClient().NFTs(a.ctx, *id, owner)
	if err != nil {
		tracker.LogUnavailable(err, "nfts")
		utxos, height = nil, 0
	}
	spent, err := a.spendTracker()
	if err != nil {
		return err
	}
	if height > 0 {
		if err := syncSpends(spent, height); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Owner:  %s\n", owner)
	fmt.Fprintf(a.out, "Height: %d\n", height)
	n := 0
	for _, u := range utxos {
		if !spent.IsUnspent(u.UTXO.Outpoint) {
			continue
		}
		fmt.Fprintf(a.out, "  #%-8d %s\n", u.State.LocalID, u.UTXO.Outpoint)
		n++
	}
	fmt.Fprintf(a.out, "Total:  %d\n", n)
	return nil
}

func (a *app) cmdCollections(args []string) error {
	fs := a.flagSet("collections")
	addr := fs.String("address", "", "Owner address (default: wallet)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	owner, err := a.ownerAddress(*addr)
	if err != nil {
		return err
	}

	ids, err := a.trackerClient().CollectionsByOwner(a.ctx, owner)
	if err != nil {
		tracker.LogUnavailable(err, "collections")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	return nil
}

// ── spends ──────────────────────────────────────────────────────────────

func (a *app) cmdSpends(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "show":
		t, err := a.spendTracker()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Watermark: %d\n", t.BlockHeight())
		fmt.Fprintf(a.out, "Threshold: %d blocks\n", t.Threshold())
		fmt.Fprintf(a.out, "Spent:     %d\n", t.Len())
		for _, op := range t.Spent() {
			fmt.Fprintf(a.out, "  %s\n", op)
		}
	case "reset":
		db, err := a.spendDB()
		if err != nil {
			return err
		}
		if err := db.DeleteAll(); err != nil {
			return fmt.Errorf("reset spends: %w", err)
		}
		fmt.Fprintln(a.out, "Spend tracker cleared.")
	default:
		return errors.New("usage: cat721-cli spends [show|reset]")
	}
	return nil
}

// ── wallet ──────────────────────────────────────────────────────────────

func (a *app) cmdWallet(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: cat721-cli wallet <create|address>")
	}
	switch args[0] {
	case "create":
		return a.cmdWalletCreate(args[1:])
	case "address":
		info, err := wallet.ReadInfo(a.cfg.WalletFile())
		if err != nil {
			return fmt.Errorf("read wallet: %w", err)
		}
		fmt.Fprintf(a.out, "Network: %s\n", info.Network)
		fmt.Fprintf(a.out, "Address: %s\n", info.Address)
		return nil
	default:
		return fmt.Errorf("unknown wallet command: %s", args[0])
	}
}

func (a *app) cmdWalletCreate(args []string) error {
	fs := a.flagSet("wallet create")
	mnemonicFlag := fs.String("mnemonic", "", "Restore from an existing mnemonic")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mnemonic := *mnemonicFlag
	if mnemonic == "" {
		var err error
		mnemonic, err = wallet.GenerateMnemonic()
		if err != nil {
			return fmt.Errorf("generate mnemonic: %w", err)
		}
		fmt.Fprintln(a.out, "Mnemonic (write this down!):")
		fmt.Fprintf(a.out, "  %s\n\n", mnemonic)
	} else if !wallet.ValidateMnemonic(mnemonic) {
		return errors.New("invalid mnemonic")
	}

	password, err := a.readPassword("Enter password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := a.readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if string(password) != string(confirm) {
		return errors.New("passwords do not match")
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return fmt.Errorf("derive seed: %w", err)
	}
	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()
	w, err := wallet.FromSeed(seed, a.cfg.ChainParams())
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	addr := w.Address().EncodeAddress()
	w.Zero()

	if err := config.EnsureDataDirs(a.cfg); err != nil {
		return err
	}
	path := a.cfg.WalletFile()
	if err := wallet.CreateFile(path, seed, password, wallet.DefaultParams(), string(a.cfg.Network), addr); err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}

	fmt.Fprintf(a.out, "Wallet:  %s\n", path)
	fmt.Fprintf(a.out, "Address: %s\n", addr)
	return nil
}

func (a *app) openWallet() (*wallet.Wallet, error) {
	password, err := a.readPassword("Wallet password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	seed, err := wallet.LoadFile(a.cfg.WalletFile(), password)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	w, err := wallet.FromSeed(seed, a.cfg.ChainParams())
	for i := range seed {
		seed[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return w, nil
}

// ── plan ────────────────────────────────────────────────────────────────

func (a *app) cmdPlan(args []string) error {
	fs := a.flagSet("plan")
	id := fs.String("id", "", "Collection id")
	dir := fs.String("resource", a.cfg.Resource.Dir, "Resource directory")
	contentType := fs.String("type", a.cfg.Resource.ContentType, "Content type")
	ownerFlag := fs.String("owner", "", "Receiver token address (default: wallet)")
	stop := fs.Int64("stop", -1, "Do not mint local ids at or above this one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *dir == "" {
		return errors.New("usage: cat721-cli plan --id <collection> --resource <dir> [--type <mime>] [--owner <addr>] [--stop <n>]")
	}

	req := mint.MintRequest{CollectionID: *id, ContentType: *contentType, FeeRate: a.cfg.Fee.Rate}
	if *ownerFlag != "" {
		owner, err := types.ParseTokenAddress(*ownerFlag)
		if err != nil {
			return fmt.Errorf("--owner: %w", err)
		}
		req.Owner = owner
	}
	if *stop >= 0 {
		s := uint64(*stop)
		req.StopID = &s
	}

	w, err := a.openWallet()
	if err != nil {
		return err
	}
	defer w.Zero()
	spent, err := a.spendTracker()
	if err != nil {
		return err
	}
	f, err := a.finder(spent)
	if err != nil {
		return err
	}
	svc, err := mint.New(mint.Config{
		Tracker:     a.trackerClient(),
		Chain:       a.chainClient(),
		Finder:      f,
		Spend:       spent,
		Resources:   resource.NewDirStore(*dir),
		Wallet:      w,
		Broadcaster: a.chainClient(),
		FeeSource:   a.chainClient(),
		FeeRate:     a.cfg.Fee.Rate,
	})
	if err != nil {
		return err
	}

	plan, err := svc.Prepare(a.ctx, req)
	if err != nil {
		return err
	}
	out := map[string]interface{}{
		"collectionId":  plan.Collection.CollectionID,
		"kind":          plan.Minter.Kind.String(),
		"minter":        plan.Minter.UTXO.Outpoint.String(),
		"localId":       plan.LocalID,
		"owner":         plan.Owner.String(),
		"contentType":   plan.ContentType,
		"contentSize":   len(plan.Body),
		"metadata":      plan.Metadata,
		"pubkey":        hex.EncodeToString(plan.PubKeyX),
		"feeRate":       plan.FeeRate,
		"feeUtxos":      len(plan.FeeUTXOs),
		"changeAddress": plan.ChangeAddress,
	}
	if plan.Proof != nil {
		out["proof"] = plan.Proof.Siblings
	}
	return a.printJSON(out)
}

// ── helpers ─────────────────────────────────────────────────────────────

func (a *app) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

func (a *app) readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(a.errOut, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(a.errOut)
	if err != nil {
		return nil, err
	}
	return password, nil
}
