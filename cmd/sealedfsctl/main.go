// Command sealedfsctl is a thin CLI over a single vault: init, list,
// mkdir, get and put, none of which carry any logic of their own beyond
// parsing flags and calling into the vault and provider packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/sealedfs/sealedfs/block"
	"github.com/sealedfs/sealedfs/provider"
	"github.com/sealedfs/sealedfs/vault"
	"github.com/sealedfs/sealedfs/vaultpath"
)

var debug = flag.Bool("debug", false, "format error messages with additional detail")

func funcmain() error {
	flag.Parse()

	type cmd struct {
		fn func(args []string) error
	}
	verbs := map[string]cmd{
		"init":  {cmdInit},
		"list":  {cmdList},
		"mkdir": {cmdMkdir},
		"get":   {cmdGet},
		"put":   {cmdPut},
	}

	args := flag.Args()
	if len(args) == 0 {
		return xerrors.Errorf("usage: sealedfsctl [-flags] <init|list|mkdir|get|put> [args...]")
	}
	verb, rest := args[0], args[1:]

	c, ok := verbs[verb]
	if !ok {
		return xerrors.Errorf("unknown command %q", verb)
	}
	return c.fn(rest)
}

// vaultFlags is the pair of flags every subcommand takes: where the
// vault's blocks live, and where its pointer file is.
func vaultFlags(fs *flag.FlagSet, defaultDir string) (blocksDir, pointerPath *string) {
	blocksDir = fs.String("blocks", filepath.Join(defaultDir, "blocks"), "directory the block store lives in")
	pointerPath = fs.String("pointer", filepath.Join(defaultDir, "vault.ptr"), "path of the vault's pointer file")
	return blocksDir, pointerPath
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	blocksDir, pointerPath := vaultFlags(fs, ".sealedfs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := provider.New(*blocksDir, block.IdentityCipher{})
	if err != nil {
		return err
	}
	v, err := vault.Initialize(p, *pointerPath)
	if err != nil {
		return err
	}
	fmt.Printf("initialized vault %s at %s\n", v.VaultBlockID(), *pointerPath)
	return nil
}

func openVault(fs *flag.FlagSet, args []string) (*vault.Vault, error) {
	blocksDir, pointerPath := vaultFlags(fs, ".sealedfs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	p, err := provider.New(*blocksDir, block.IdentityCipher{})
	if err != nil {
		return nil, err
	}
	return vault.Open(p, *pointerPath)
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	v, err := openVault(fs, args)
	if err != nil {
		return err
	}
	rest := fs.Args()
	path := "/"
	if len(rest) > 0 {
		path = rest[0]
	}
	vp, err := vaultpath.New(path)
	if err != nil {
		return err
	}
	entries, err := v.List(vp)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\n", e.Kind, e.Name)
	}
	return nil
}

func cmdMkdir(args []string) error {
	fs := flag.NewFlagSet("mkdir", flag.ExitOnError)
	v, err := openVault(fs, args)
	if err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return xerrors.Errorf("usage: sealedfsctl mkdir [-flags] <path>")
	}
	vp, err := vaultpath.New(rest[0])
	if err != nil {
		return err
	}
	return v.CreateDirectory(vp)
}

func cmdGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	v, err := openVault(fs, args)
	if err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return xerrors.Errorf("usage: sealedfsctl get [-flags] <path>")
	}
	vp, err := vaultpath.New(rest[0])
	if err != nil {
		return err
	}
	f, ok, err := v.Get(vp)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Errorf("%s: not found", vp)
	}
	_, err = os.Stdout.Write(f.Data)
	return err
}

func cmdPut(args []string) error {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	v, err := openVault(fs, args)
	if err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return xerrors.Errorf("usage: sealedfsctl put [-flags] <path>")
	}
	vp, err := vaultpath.New(rest[0])
	if err != nil {
		return err
	}
	name, ok := vp.FileName()
	if !ok {
		return xerrors.Errorf("%s: cannot put the root", vp)
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	return v.Put(vp, vault.File{Name: name, Data: data})
}

func main() {
	if err := funcmain(); err != nil {
		if *debug {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}
