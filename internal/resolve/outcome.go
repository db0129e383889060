package resolve

import "time"

// Kind is what the pipeline does with a resolved request.
type Kind int

const (
	KindMarkdown Kind = iota // render the document
	KindStatic               // serve bytes as-is
	KindListing              // generate a directory listing
	KindNotFound             // rich not-found page
	KindTooLarge             // 413 before any read
	KindDenied               // terse denial, no path disclosed
)

var kindNames = [...]string{"markdown", "static", "listing", "not-found", "too-large", "denied"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Branch records which resolution rule produced an outcome.
type Branch int

const (
	BranchExact Branch = iota
	BranchExtensionless
	BranchDirectoryIndex
	BranchDirectoryListing
	BranchNotFound
	BranchDenied
)

var branchNames = [...]string{"exact", "extensionless", "directory-index", "directory-listing", "not-found", "denied"}

func (b Branch) String() string {
	if b < 0 || int(b) >= len(branchNames) {
		return "unknown"
	}
	return branchNames[b]
}

// DenyReason says why a request was denied. It is logged, never sent.
type DenyReason int

const (
	ReasonNone DenyReason = iota
	ReasonBadEncoding
	ReasonNullByte
	ReasonTraversal
	ReasonCanonicalize
	ReasonOutsideRoot
)

var reasonNames = [...]string{"", "invalid-percent-encoding", "null-byte", "path-traversal", "canonicalize-failed", "outside-root"}

func (r DenyReason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}

// Outcome is the result of resolving one request path.
type Outcome struct {
	Kind   Kind
	Branch Branch
	Reason DenyReason

	// Path is the canonical absolute path of the served file or listed
	// directory. For KindNotFound it is the nearest existing ancestor.
	Path string
	// Rel is the slash-separated, root-relative path the request reached
	// before canonicalization ("" for the root). Relative links inside a
	// rendered document are resolved against its directory.
	Rel string
	// Requested is the normalized request path with a leading slash.
	// Empty for denials.
	Requested string

	Size        int64
	ModTime     time.Time
	ContentType string
}

func denied(reason DenyReason) Outcome {
	return Outcome{Kind: KindDenied, Branch: BranchDenied, Reason: reason}
}
