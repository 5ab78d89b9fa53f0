package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/compute-version/internal/bump"
	"github.com/bartekus/compute-version/internal/commitanalyzer"
	"github.com/bartekus/compute-version/internal/tagpattern"
)

// fakeRepo serves canned answers and records the questions asked.
// ListTags ignores the glob so pattern filtering is left to the resolver.
type fakeRepo struct {
	atHead  []string
	tags    []string
	commits map[string][]string // keyed by since tag

	atHeadErr error
	tagsErr   error
	logErr    error

	gotGlob  string
	gotSince string
	gotPath  string
}

func (f *fakeRepo) CurrentBranch(context.Context) (string, error) { return "main", nil }

func (f *fakeRepo) TagsAtHead(context.Context) ([]string, error) {
	return f.atHead, f.atHeadErr
}

func (f *fakeRepo) ListTags(_ context.Context, glob string) ([]string, error) {
	f.gotGlob = glob
	return f.tags, f.tagsErr
}

func (f *fakeRepo) CommitSubjects(_ context.Context, since, p string) ([]string, error) {
	f.gotSince, f.gotPath = since, p
	if f.logErr != nil {
		return nil, f.logErr
	}
	return f.commits[since], nil
}

type fixedClassifier struct {
	release bump.ReleaseType
	err     error
	called  bool
}

func (c *fixedClassifier) Analyze(context.Context, []commitanalyzer.Commit) (bump.ReleaseType, error) {
	c.called = true
	return c.release, c.err
}

func newResolver(t *testing.T, repo *fakeRepo, pattern string, opts Options) *Resolver {
	t.Helper()
	a, err := commitanalyzer.New(commitanalyzer.PresetConventionalCommits, nil, nil)
	require.NoError(t, err)
	return New(repo, a, tagpattern.MustParse(pattern), opts)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		repo       *fakeRepo
		pattern    string
		prerelease string
		want       ResolvedVersion
	}{
		{
			name:    "exactly on a release tag",
			repo:    &fakeRepo{atHead: []string{"v1.2.3"}, tags: []string{"v1.2.3"}},
			pattern: "v{version}",
			want:    ResolvedVersion{Version: "1.2.3", Changed: false},
		},
		{
			name:    "tag at head from another package is ignored",
			repo:    &fakeRepo{atHead: []string{"web-v9.0.0"}, commits: map[string][]string{"": {"docs: x"}}},
			pattern: "v{version}",
			want:    ResolvedVersion{Version: "0.0.0", Changed: false},
		},
		{
			name:    "no tags and no commits",
			repo:    &fakeRepo{},
			pattern: "v{version}",
			want:    ResolvedVersion{Version: "0.0.0", Changed: false},
		},
		{
			name:       "no tags and a breaking commit on a branch",
			repo:       &fakeRepo{commits: map[string][]string{"": {"fix: a", "feat!: new api"}}},
			pattern:    "v{version}",
			prerelease: "beta",
			want:       ResolvedVersion{Version: "1.0.0-beta", Changed: true},
		},
		{
			name: "fixes since v2.0.0 on trunk",
			repo: &fakeRepo{
				tags:    []string{"v2.0.0", "v1.0.0"},
				commits: map[string][]string{"v2.0.0": {"fix: a", "fix(x): b"}},
			},
			pattern:    "v{version}",
			prerelease: "pre",
			want:       ResolvedVersion{Version: "2.0.1-pre", Changed: true},
		},
		{
			name: "fixes since v2.0.0 on a branch",
			repo: &fakeRepo{
				tags:    []string{"v2.0.0"},
				commits: map[string][]string{"v2.0.0": {"fix: a"}},
			},
			pattern:    "v{version}",
			prerelease: "beta",
			want:       ResolvedVersion{Version: "2.0.1-beta", Changed: true},
		},
		{
			name: "commits without release signal keep the baseline",
			repo: &fakeRepo{
				tags:    []string{"v2.0.0"},
				commits: map[string][]string{"v2.0.0": {"docs: a", "chore: b"}},
			},
			pattern:    "v{version}",
			prerelease: "pre",
			want:       ResolvedVersion{Version: "2.0.0", Changed: false},
		},
		{
			name: "first matching tag in repository order is the baseline",
			repo: &fakeRepo{
				tags:    []string{"v1.3.0-pre.2", "v1.3.0", "v1.2.0"},
				commits: map[string][]string{"v1.3.0-pre.2": {"feat: a"}},
			},
			pattern:    "v{version}",
			prerelease: "pre",
			want:       ResolvedVersion{Version: "1.3.0-pre.3", Changed: true},
		},
		{
			name: "tags the pattern does not extract from are passed over",
			repo: &fakeRepo{
				tags:    []string{"v2", "vnext", "v1.1.0"},
				commits: map[string][]string{"v1.1.0": {"fix: a"}},
			},
			pattern: "v{version}",
			want:    ResolvedVersion{Version: "1.1.1", Changed: true},
		},
		{
			name: "literal dots in the pattern",
			repo: &fakeRepo{
				tags:    []string{"releaseXv9.0.0", "release.v1.0.0"},
				commits: map[string][]string{"release.v1.0.0": {"feat: a"}},
			},
			pattern:    "release.v{version}",
			prerelease: "pre",
			want:       ResolvedVersion{Version: "1.1.0-pre", Changed: true},
		},
		{
			name: "prerelease baseline with the same label",
			repo: &fakeRepo{
				tags:    []string{"v1.3.0-pre"},
				commits: map[string][]string{"v1.3.0-pre": {"fix: a"}},
			},
			pattern:    "v{version}",
			prerelease: "pre",
			want:       ResolvedVersion{Version: "1.3.0-pre.1", Changed: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(t, tt.repo, tt.pattern, Options{})
			got, err := r.Resolve(context.Background(), tt.prerelease)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_QueriesRepository(t *testing.T) {
	repo := &fakeRepo{
		tags:    []string{"api/v1.1.0", "api/v1.0.0", "web/v3.0.0"},
		commits: map[string][]string{"api/v1.1.0": {"fix: a"}},
	}
	r := newResolver(t, repo, "api/v{version}", Options{WorkingDir: "services/api/"})

	got, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ResolvedVersion{Version: "1.1.1", Changed: true}, got)
	assert.Equal(t, "api/v*", repo.gotGlob)
	assert.Equal(t, "api/v1.1.0", repo.gotSince)
	assert.Equal(t, "services/api/", repo.gotPath)
}

func TestResolve_DefaultWorkingDir(t *testing.T) {
	repo := &fakeRepo{}
	r := newResolver(t, repo, "v{version}", Options{})
	_, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "./", repo.gotPath)
	assert.Equal(t, "", repo.gotSince)
}

func TestResolve_RepositoryFailuresDegrade(t *testing.T) {
	boom := errors.New("git exploded")
	repo := &fakeRepo{
		atHeadErr: boom,
		tagsErr:   boom,
		commits:   map[string][]string{"": {"feat: a"}},
	}
	r := newResolver(t, repo, "v{version}", Options{})

	got, err := r.Resolve(context.Background(), "pre")
	require.NoError(t, err)
	assert.Equal(t, ResolvedVersion{Version: "0.1.0-pre", Changed: true}, got)

	repo.logErr = boom
	got, err = r.Resolve(context.Background(), "pre")
	require.NoError(t, err)
	assert.Equal(t, ResolvedVersion{Version: "0.0.0", Changed: false}, got)
}

func TestResolve_StrictSurfacesFailures(t *testing.T) {
	boom := errors.New("git exploded")

	r := newResolver(t, &fakeRepo{atHeadErr: boom}, "v{version}", Options{Strict: true})
	_, err := r.Resolve(context.Background(), "")
	var repoErr *RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, "looking up tags at HEAD", repoErr.Step)
	require.ErrorIs(t, err, boom)

	r = newResolver(t, &fakeRepo{logErr: boom}, "v{version}", Options{Strict: true})
	_, err = r.Resolve(context.Background(), "")
	require.ErrorIs(t, err, boom)
}

func TestResolve_UnparseableTagVersion(t *testing.T) {
	repo := &fakeRepo{
		tags: []string{"v99999999999999999999.0.0", "v1.0.0"},
		commits: map[string][]string{
			"":                          {"feat: a", "fix: b"},
			"v99999999999999999999.0.0": {"fix: b"},
		},
	}

	r := newResolver(t, repo, "v{version}", Options{})
	got, err := r.Resolve(context.Background(), "pre")
	require.NoError(t, err)
	assert.Equal(t, ResolvedVersion{Version: "0.1.0-pre", Changed: true}, got)
	assert.Equal(t, "", repo.gotSince, "falls back to the whole history")

	r = newResolver(t, repo, "v{version}", Options{Strict: true})
	_, err = r.Resolve(context.Background(), "pre")
	var repoErr *RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, "parsing version of tag v99999999999999999999.0.0", repoErr.Step)
}

func TestResolve_ClassifierNotCalledWithoutCommits(t *testing.T) {
	c := &fixedClassifier{release: bump.Major}
	r := New(&fakeRepo{tags: []string{"v1.0.0"}}, c, tagpattern.MustParse("v{version}"), Options{})

	got, err := r.Resolve(context.Background(), "pre")
	require.NoError(t, err)
	assert.False(t, c.called)
	assert.Equal(t, ResolvedVersion{Version: "1.0.0", Changed: false}, got)
}

func TestResolve_ClassifierError(t *testing.T) {
	c := &fixedClassifier{err: context.Canceled}
	repo := &fakeRepo{commits: map[string][]string{"": {"feat: a"}}}
	r := New(repo, c, tagpattern.MustParse("v{version}"), Options{})

	_, err := r.Resolve(context.Background(), "pre")
	require.ErrorIs(t, err, context.Canceled)
}
