package models

// NodeKind tells which half of a Node is set.
type NodeKind string

const (
	NodeFolder NodeKind = "folder"
	NodeFile   NodeKind = "file"
)

// Node is either a folder or a file.
type Node struct {
	Kind   NodeKind
	Folder *Folder
	File   *File
}

// FolderNode wraps f into a Node.
func FolderNode(f *Folder) *Node {
	return &Node{Kind: NodeFolder, Folder: f}
}

// FileNode wraps f into a Node.
func FileNode(f *File) *Node {
	return &Node{Kind: NodeFile, File: f}
}

// ID returns the id of the wrapped entity.
func (n *Node) ID() string {
	if n.Kind == NodeFolder {
		return n.Folder.ID
	}
	return n.File.ID
}

// Name returns the name of the wrapped entity.
func (n *Node) Name() string {
	if n.Kind == NodeFolder {
		return n.Folder.Name
	}
	return n.File.Name
}

// Listing is a set of folders and files, e.g. the children of a folder or
// search results.
type Listing struct {
	Folders []*Folder
	Files   []*File
}
