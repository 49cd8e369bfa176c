package queries

import (
	"context"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

const (
	HighlightsFile  = "highlights.scm"
	InjectionsFile  = "injections.scm"
	LocalsFile      = "locals.scm"
	TextObjectsFile = "textobjects.scm"
)

// Queries holds the query sources of one language. A nil field means the language does not
// ship that query.
type Queries struct {
	Highlights  *string
	Injections  *string
	Locals      *string
	TextObjects *string
}

// Load reads the query files found in dir. Missing or unreadable files leave their field nil;
// the content is not validated.
func Load(fs afero.Fs, dir string) Queries {
	return Queries{
		Highlights:  readOptional(fs, filepath.Join(dir, HighlightsFile)),
		Injections:  readOptional(fs, filepath.Join(dir, InjectionsFile)),
		Locals:      readOptional(fs, filepath.Join(dir, LocalsFile)),
		TextObjects: readOptional(fs, filepath.Join(dir, TextObjectsFile)),
	}
}

func readOptional(fs afero.Fs, name string) *string {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil
	}
	content := string(data)
	return &content
}

// Store looks up per-language query directories under a root directory, one subdirectory per
// language.
type Store struct {
	fs   afero.Fs
	root string
}

func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Languages lists the subdirectories holding at least one known query file.
func (me *Store) Languages(ctx context.Context) ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(me.fs, me.root))

	pattern := "*/{" + HighlightsFile + "," + InjectionsFile + "," + LocalsFile + "," + TextObjectsFile + "}"
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, errors.Errorf("globbing queries in %s: %w", me.root, err)
	}

	seen := make(map[string]struct{}, len(matches))
	langs := make([]string, 0, len(matches))
	for _, match := range matches {
		lang := path.Dir(match)
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	zerolog.Ctx(ctx).Debug().Str("root", me.root).Strs("languages", langs).Msg("discovered query directories")

	return langs, nil
}

func (me *Store) Load(ctx context.Context, lang string) Queries {
	q := Load(me.fs, filepath.Join(me.root, lang))

	zerolog.Ctx(ctx).Debug().
		Str("lang", lang).
		Bool("highlights", q.Highlights != nil).
		Bool("injections", q.Injections != nil).
		Bool("locals", q.Locals != nil).
		Bool("text_objects", q.TextObjects != nil).
		Msg("loaded queries")

	return q
}
