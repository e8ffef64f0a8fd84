package mailbox

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"labelmail/models"
)

// Kind identifies a system folder. Its value is also the route segment
// under /dashboard/.
type Kind string

const (
	KindInbox   Kind = "inbox"
	KindDrafts  Kind = "draft"
	KindSent    Kind = "sent"
	KindStarred Kind = "starred"
	KindAll     Kind = "all"
	KindTrash   Kind = "trash"
	KindSpam    Kind = "junk"
)

// DashboardPrefix is the root of every mailbox route.
const DashboardPrefix = "/dashboard"

// systemOrder is the sidebar order of system folders.
var systemOrder = []Kind{KindInbox, KindDrafts, KindSent, KindStarred, KindAll, KindTrash, KindSpam}

var kindLabels = map[Kind]string{
	KindInbox:   "Inbox",
	KindDrafts:  "Drafts",
	KindSent:    "Sent",
	KindStarred: "Starred",
	KindAll:     "All Mail",
	KindTrash:   "Trash",
	KindSpam:    "Spam",
}

// gmailDefaults is used when the folder list does not resolve a route.
var gmailDefaults = map[Kind]string{
	KindInbox:   "INBOX",
	KindDrafts:  "[Gmail]/Drafts",
	KindSent:    "[Gmail]/Sent Mail",
	KindStarred: "[Gmail]/Starred",
	KindAll:     "[Gmail]/All Mail",
	KindTrash:   "[Gmail]/Trash",
	KindSpam:    "[Gmail]/Spam",
}

var nonIDChars = regexp.MustCompile(`[^a-z0-9]`)

// Label returns the English display name of a system folder.
func (k Kind) Label() string {
	return kindLabels[k]
}

// Href returns the dashboard route of a system folder.
func (k Kind) Href() string {
	return DashboardPrefix + "/" + string(k)
}

// ParseKind maps a route segment to a Kind. "spam" is accepted for junk.
func ParseKind(segment string) (Kind, bool) {
	segment = strings.ToLower(segment)
	if segment == "spam" {
		return KindSpam, true
	}
	k := Kind(segment)
	_, ok := kindLabels[k]
	return k, ok
}

// Classify decides whether a folder is a system folder by its flags, with
// name fallbacks for Gmail's Starred, All Mail and INBOX.
func Classify(f models.Folder) (Kind, bool) {
	flags := make(map[string]bool, len(f.Flags))
	for _, flag := range f.Flags {
		flags[strings.ToUpper(flag)] = true
	}

	switch {
	case flags[`\DRAFTS`]:
		return KindDrafts, true
	case flags[`\SENT`]:
		return KindSent, true
	case flags[`\TRASH`]:
		return KindTrash, true
	case flags[`\JUNK`] || flags[`\SPAM`]:
		return KindSpam, true
	case flags[`\FLAGGED`] || strings.Contains(f.Name, "Starred"):
		return KindStarred, true
	case flags[`\ALL`] || strings.Contains(f.Name, "All Mail"):
		return KindAll, true
	case f.Name == "INBOX" || flags[`\INBOX`]:
		return KindInbox, true
	}
	return "", false
}

// FolderID derives a stable DOM id from a folder name.
func FolderID(name string) string {
	return nonIDChars.ReplaceAllString(strings.ToLower(name), "-")
}

// FolderHref is the route of a user label.
func FolderHref(name string) string {
	return DashboardPrefix + "/folder/" + url.PathEscape(name)
}

func isContainer(f models.Folder) bool {
	if f.Name != "[Gmail]" {
		return false
	}
	for _, flag := range f.Flags {
		if strings.EqualFold(flag, `\Noselect`) {
			return true
		}
	}
	return false
}

// MapFolders splits folders into ordered system folders and user labels.
// The [Gmail] container is skipped.
func MapFolders(folders []models.Folder) models.FolderTree {
	tree := models.FolderTree{
		System: []models.MappedFolder{},
		Custom: []models.MappedFolder{},
	}

	for _, f := range folders {
		if isContainer(f) {
			continue
		}
		if kind, ok := Classify(f); ok {
			tree.System = append(tree.System, models.MappedFolder{
				ID:       FolderID(f.Name),
				Name:     f.Name,
				Label:    kind.Label(),
				Kind:     string(kind),
				Href:     kind.Href(),
				Flags:    f.Flags,
				IsSystem: true,
			})
			continue
		}
		tree.Custom = append(tree.Custom, models.MappedFolder{
			ID:    FolderID(f.Name),
			Name:  f.Name,
			Label: f.Name,
			Href:  FolderHref(f.Name),
			Flags: f.Flags,
		})
	}

	rank := make(map[string]int, len(systemOrder))
	for i, k := range systemOrder {
		rank[string(k)] = i
	}
	sort.SliceStable(tree.System, func(i, j int) bool {
		return rank[tree.System[i].Kind] < rank[tree.System[j].Kind]
	})

	return tree
}

// FolderForRoute resolves a dashboard route to the mailbox name the
// backend expects. Custom label routes carry the name; system routes are
// looked up in folders and fall back to Gmail's default names.
func FolderForRoute(route string, folders []models.Folder) string {
	if i := strings.Index(route, "/folder/"); i >= 0 {
		escaped := route[i+len("/folder/"):]
		if name, err := url.PathUnescape(escaped); err == nil && name != "" {
			return name
		}
		return escaped
	}

	segment := strings.Trim(strings.TrimPrefix(route, DashboardPrefix), "/")
	kind, ok := ParseKind(segment)
	if !ok {
		return gmailDefaults[KindInbox]
	}

	for _, f := range folders {
		if isContainer(f) {
			continue
		}
		if k, ok := Classify(f); ok && k == kind {
			return f.Name
		}
	}
	return gmailDefaults[kind]
}
