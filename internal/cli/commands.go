package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/services"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal on stdin.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// requireArg returns the named positional argument or a usage error.
func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", cli.Exit(fmt.Sprintf("missing <%s>", name), ExitInvalid)
	}
	return v, nil
}

// optionalID turns an empty id into nil, meaning the owner's root.
func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// folderRef resolves --path (or the folder argument) to a folder id.
func (s *session) folderRef(ctx context.Context, cmd *cli.Command, arg string) (*string, error) {
	if p := cmd.String("path"); p != "" {
		f, err := s.app.Tree.FindFolderByPath(ctx, s.owner, p)
		if err != nil {
			return nil, err
		}
		return &f.ID, nil
	}
	return optionalID(cmd.StringArg(arg)), nil
}

func parentFlag() cli.Flag {
	return &cli.StringFlag{Name: "parent", Usage: "id of the parent folder (default: root)"}
}

func allFlag() cli.Flag {
	return &cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "include deleted entries"}
}

func pathFlag() cli.Flag {
	return &cli.StringFlag{Name: "path", Usage: "folder path such as docs/work, instead of an id"}
}

func (s *session) mkdirCmd() *cli.Command {
	return &cli.Command{
		Name:      "mkdir",
		Usage:     "Create a folder",
		Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
		Flags:     []cli.Flag{parentFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := requireArg(cmd, "name")
			if err != nil {
				return err
			}
			f, err := s.app.Tree.CreateFolder(ctx, services.CreateFolderRequest{
				Owner:    s.owner,
				Name:     name,
				ParentID: optionalID(cmd.String("parent")),
			})
			if err != nil {
				return err
			}
			printNode(cmd.Root().Writer, models.FolderNode(f))
			return nil
		},
	}
}

func (s *session) uploadCmd() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a local file, or stdin when the path is -",
		Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
		Flags: []cli.Flag{
			parentFlag(),
			&cli.StringFlag{Name: "name", Usage: "stored file name (default: base name of the local file)"},
			&cli.StringFlag{Name: "comment", Usage: "comment recorded on the replaced version"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			src, err := requireArg(cmd, "file")
			if err != nil {
				return err
			}

			req := services.UploadRequest{
				Owner:    s.owner,
				Name:     cmd.String("name"),
				ParentID: optionalID(cmd.String("parent")),
				Comment:  cmd.String("comment"),
			}

			if src == "-" {
				if req.Name == "" {
					return cli.Exit("--name is required when reading stdin", ExitInvalid)
				}
				req.Content = cmd.Root().Reader
				req.Size = -1
			} else {
				f, err := os.Open(src)
				if err != nil {
					return err
				}
				defer f.Close()
				st, err := f.Stat()
				if err != nil {
					return err
				}
				if req.Name == "" {
					req.Name = filepath.Base(src)
				}
				req.Content = f
				req.Size = st.Size()
			}

			res, err := s.app.Tree.UploadFile(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "file %s %s version %d %s\n",
				res.File.ID, res.File.Name, res.Version, res.File.Checksum)
			return nil
		},
	}
}

func (s *session) downloadCmd() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Write file content to stdout or --out",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "version", Usage: "historical version number (default: current content)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "destination file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}

			var rc io.ReadCloser
			if n := cmd.Int("version"); n > 0 {
				_, rc, err = s.app.Versions.OpenVersion(ctx, s.owner, id, n)
			} else {
				_, rc, err = s.app.Tree.OpenFile(ctx, s.owner, id)
			}
			if err != nil {
				return err
			}
			defer rc.Close()

			var w io.Writer = cmd.Root().Writer
			if out := cmd.String("out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			_, err = io.Copy(w, rc)
			return err
		},
	}
}

func (s *session) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List the children of a folder (default: root)",
		Arguments: []cli.Argument{&cli.StringArg{Name: "folder"}},
		Flags:     []cli.Flag{allFlag(), pathFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := s.folderRef(ctx, cmd, "folder")
			if err != nil {
				return err
			}
			l, err := s.app.Tree.ListChildren(ctx, s.owner, id, cmd.Bool("all"))
			if err != nil {
				return err
			}
			return printListing(cmd.Root().Writer, l)
		},
	}
}

func (s *session) infoCmd() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show a folder's path, size and children",
		Arguments: []cli.Argument{&cli.StringArg{Name: "folder"}},
		Flags:     []cli.Flag{allFlag(), pathFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := s.folderRef(ctx, cmd, "folder")
			if err != nil {
				return err
			}
			d, err := s.app.Tree.FolderDetails(ctx, s.owner, id, cmd.Bool("all"))
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			fmt.Fprintf(w, "id:   %s\npath: %s\nsize: %s\n\n", d.Folder.ID, d.Path, formatSize(d.Size))
			return printListing(w, d.Children)
		},
	}
}

func (s *session) mvCmd() *cli.Command {
	return &cli.Command{
		Name:      "mv",
		Usage:     "Move a folder or file into another folder",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     []cli.Flag{&cli.StringFlag{Name: "to", Usage: "id of the target folder (default: root)"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			n, err := s.app.Tree.Move(ctx, s.owner, id, optionalID(cmd.String("to")))
			if err != nil {
				return err
			}
			printNode(cmd.Root().Writer, n)
			return nil
		},
	}
}

func (s *session) renameCmd() *cli.Command {
	return &cli.Command{
		Name:  "rename",
		Usage: "Rename a folder or file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "name"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			name, err := requireArg(cmd, "name")
			if err != nil {
				return err
			}
			n, err := s.app.Tree.Rename(ctx, s.owner, id, name)
			if err != nil {
				return err
			}
			printNode(cmd.Root().Writer, n)
			return nil
		},
	}
}

func (s *session) rmCmd() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a file, or a folder with everything below it",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			if err := s.app.Tree.Delete(ctx, s.owner, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "deleted %s\n", id)
			return nil
		},
	}
}

func (s *session) findCmd() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "Search folders and files by name, ignoring case",
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Flags:     []cli.Flag{allFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q, err := requireArg(cmd, "query")
			if err != nil {
				return err
			}
			l, err := s.app.Search.SearchByName(ctx, s.owner, q, cmd.Bool("all"))
			if err != nil {
				return err
			}
			return printListing(cmd.Root().Writer, l)
		},
	}
}

func (s *session) versionsCmd() *cli.Command {
	return &cli.Command{
		Name:      "versions",
		Usage:     "List the previous versions of a file",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			list, err := s.app.Versions.ListVersions(ctx, s.owner, id)
			if err != nil {
				return err
			}
			return printVersions(cmd.Root().Writer, list)
		},
	}
}

func (s *session) quotaCmd() *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "Show used and available storage",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			u, err := s.app.Quota.Usage(ctx, s.owner)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if u.Unlimited() {
				fmt.Fprintf(w, "used: %s\nlimit: unlimited\n", formatSize(u.Used))
				return nil
			}
			fmt.Fprintf(w, "used: %s\nlimit: %s\nfree: %s\n",
				formatSize(u.Used), formatSize(u.Limit), formatSize(u.Remaining()))
			return nil
		},
	}
}

func (s *session) favCmd() *cli.Command {
	return &cli.Command{
		Name:      "fav",
		Usage:     "Mark a file as favorite",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     []cli.Flag{&cli.BoolFlag{Name: "off", Usage: "remove the mark"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			f, err := s.app.Tree.SetFavorite(ctx, s.owner, id, !cmd.Bool("off"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "file %s favorite=%t\n", f.ID, f.IsFavorite)
			return nil
		},
	}
}

func (s *session) favoritesCmd() *cli.Command {
	return &cli.Command{
		Name:  "favorites",
		Usage: "List favorite files",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files, err := s.app.Search.Favorites(ctx, s.owner)
			if err != nil {
				return err
			}
			return printFiles(cmd.Root().Writer, files)
		},
	}
}

func (s *session) verifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Re-hash stored content and compare it with the recorded checksum",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			if err := s.app.Tree.VerifyFile(ctx, s.owner, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "ok %s\n", id)
			return nil
		},
	}
}

func (s *session) urlCmd() *cli.Command {
	return &cli.Command{
		Name:      "url",
		Usage:     "Print a time-limited download URL",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			u, err := s.app.Tree.DownloadURL(ctx, s.owner, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, u)
			return nil
		},
	}
}

func (s *session) teardownCmd() *cli.Command {
	return &cli.Command{
		Name:  "teardown",
		Usage: "Permanently remove all folders, files and versions of the owner",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.Bool("yes") {
				ok, err := confirm(cmd, fmt.Sprintf("Remove everything stored for %q?", s.owner))
				if err != nil {
					return err
				}
				if !ok {
					return cli.Exit("aborted", ExitFailure)
				}
			}
			if err := s.app.Tree.TeardownOwner(ctx, s.owner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "removed %s\n", s.owner)
			return nil
		},
	}
}

// confirm asks a yes/no question on an interactive terminal and refuses
// to run without one.
func confirm(cmd *cli.Command, question string) (bool, error) {
	if !isTerminal() {
		return false, cli.Exit("not a terminal, pass --yes to confirm", ExitInvalid)
	}
	fmt.Fprintf(cmd.Root().Writer, "%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.Root().Reader).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
