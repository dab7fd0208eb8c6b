package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatSize renders n bytes with a binary unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func state(deleted bool) string {
	if deleted {
		return "deleted"
	}
	return ""
}

func star(favorite bool) string {
	if favorite {
		return "*"
	}
	return ""
}

func printListing(w io.Writer, l *models.Listing) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "KIND\tID\tNAME\tSIZE\tUPDATED\t")
	for _, f := range l.Folders {
		fmt.Fprintf(tw, "folder\t%s\t%s\t-\t%s\t%s\n", f.ID, f.Name, f.UpdatedAt.Format(timeLayout), state(f.IsDeleted))
	}
	for _, f := range l.Files {
		fmt.Fprintf(tw, "file\t%s\t%s%s\t%s\t%s\t%s\n", f.ID, f.Name, star(f.IsFavorite), formatSize(f.Size),
			f.UpdatedAt.Format(timeLayout), state(f.IsDeleted))
	}
	return tw.Flush()
}

func printFiles(w io.Writer, files []*models.File) error {
	return printListing(w, &models.Listing{Files: files})
}

func printVersions(w io.Writer, list []*models.FileVersion) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "VERSION\tSIZE\tCHECKSUM\tCREATED\tBY\tCOMMENT")
	for _, v := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", v.VersionNumber, formatSize(v.Size), v.Checksum,
			v.CreatedAt.Format(time.RFC3339), v.CreatedBy, v.Comment)
	}
	return tw.Flush()
}

func printNode(w io.Writer, n *models.Node) {
	fmt.Fprintf(w, "%s %s %s\n", n.Kind, n.ID(), n.Name())
}
