package expand

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/orthopheno/internal/core/model"
	"github.com/agenthands/orthopheno/internal/monarch"
)

// fakeFetcher serves canned associations keyed by node id. Nodes missing
// from the map answer with no associations.
type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string][]model.Association
	errs  map[string]error
	calls map[string][]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data:  map[string][]model.Association{},
		errs:  map[string]error{},
		calls: map[string][]int{},
	}
}

// link registers an association under both of its endpoints, as the service
// returns it for "from" on the subject and "to" on the object.
func (f *fakeFetcher) link(sub, rel, obj string, pubs ...string) {
	a := model.Association{
		Subject: model.Term{ID: sub, Label: "label " + sub},
		Object:  model.Term{ID: obj, Label: "label " + obj},
	}
	if rel != "" {
		a.Relation = &model.Term{ID: rel, Label: "label " + rel}
	}
	for _, p := range pubs {
		a.Publications = append(a.Publications, model.Publication{ID: p})
	}
	f.data[sub] = append(f.data[sub], a)
	f.data[obj] = append(f.data[obj], a)
}

func (f *fakeFetcher) Fetch(ctx context.Context, nodeID string, rows int) (monarch.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[nodeID] = append(f.calls[nodeID], rows)
	if err := f.errs[nodeID]; err != nil {
		return monarch.FetchResult{}, err
	}
	var res monarch.FetchResult
	for _, a := range f.data[nodeID] {
		if a.Subject.ID == nodeID {
			res.Out = append(res.Out, a)
		} else {
			res.In = append(res.In, a)
		}
	}
	return res, nil
}

func TestExpand_EmptyNeighbourhood(t *testing.T) {
	f := newFakeFetcher()
	x := New(f, Options{})

	res, err := x.Expand(context.Background(), model.NewNodeSet("HGNC:17646"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates.Len())
	assert.Equal(t, 0, res.Edges.Len())
	assert.Empty(t, res.Failures)
	assert.Equal(t, []int{2000}, f.calls["HGNC:17646"])
}

func TestExpand_DuplicateAssociationsCollapse(t *testing.T) {
	f := newFakeFetcher()
	f.data["A"] = []model.Association{
		{Subject: model.Term{ID: "A"}, Relation: &model.Term{ID: "relA"}, Object: model.Term{ID: "B"}},
		{Subject: model.Term{ID: "A"}, Relation: &model.Term{ID: "relA"}, Object: model.Term{ID: "B"}},
	}
	x := New(f, Options{})

	res, err := x.Expand(context.Background(), model.NewNodeSet("A"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Edges.Len())
	assert.Equal(t, []string{"B"}, res.Candidates.Sorted())
}

func TestExpand_ProvenanceAndPublicationsExcluded(t *testing.T) {
	f := newFakeFetcher()
	f.link("A", "IAO:0000136", "PMID:123")
	f.link("A", "dc:source", "X:1")
	f.link("A", "IAO:0000142", "X:2")
	f.link("A", "RO:0002200", "PMID:9")
	f.link("A", "RO:0002200", "HP:1")
	x := New(f, Options{})

	res, err := x.Expand(context.Background(), model.NewNodeSet("A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"HP:1"}, res.Candidates.Sorted())
	assert.Equal(t, 5, res.Edges.Len(), "edges are kept unfiltered")

	for e := range res.Edges {
		if res.Candidates.Has(e.ObjectID) {
			assert.True(t, IsBiologicallyRelevant(e))
		}
	}
}

func TestExpand_NullRelationKept(t *testing.T) {
	f := newFakeFetcher()
	f.link("A", "", "B")
	x := New(f, Options{})

	res, err := x.Expand(context.Background(), model.NewNodeSet("A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.Candidates.Sorted())
}

func TestExpand_SeedExcluded(t *testing.T) {
	f := newFakeFetcher()
	f.link("A", "RO:1", "B")
	f.link("B", "RO:1", "C")
	f.link("C", "RO:1", "A")
	seed := model.NewNodeSet("A", "B")
	x := New(f, Options{Workers: 3})

	res, err := x.Expand(context.Background(), seed)
	require.NoError(t, err)
	for n := range res.Candidates {
		assert.False(t, seed.Has(n), n)
	}
	assert.Equal(t, []string{"C"}, res.Candidates.Sorted())
}

func TestExpand_SkipAndContinue(t *testing.T) {
	f := newFakeFetcher()
	f.link("A", "RO:1", "X")
	f.link("C", "RO:1", "Y")
	f.errs["B"] = fmt.Errorf("%w: status 503", monarch.ErrTransport)
	x := New(f, Options{Workers: 2})

	res, err := x.Expand(context.Background(), model.NewNodeSet("A", "B", "C"))
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, res.Candidates.Sorted())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "B", res.Failures[0].NodeID)
	assert.Equal(t, monarch.KindTransport, res.Failures[0].Kind)
}

func TestExpand_Canceled(t *testing.T) {
	f := newFakeFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f, Options{}).Expand(ctx, model.NewNodeSet("A", "B"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrthoPheno(t *testing.T) {
	f := newFakeFetcher()
	// layer one
	f.link("HGNC:1", "RO:HOM0000020", "MGI:1")
	f.link("HGNC:1", "RO:HOM0000017", "ZFIN:1")
	f.link("HGNC:1", "RO:0002200", "HP:1") // phenotype of the seed: not an ortholog
	f.link("HGNC:1", "RO:0002434", "HGNC:2")
	// layer two
	f.link("MGI:1", "RO:0002200", "MP:1")
	f.link("ZFIN:1", "GENO:0000840", "ZP:1")
	f.link("MGI:1", "RO:0002434", "MGI:2")
	x := New(f, Options{Workers: 2})

	res, err := x.OrthoPheno(context.Background(), model.NewNodeSet("HGNC:1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"MGI:1", "ZFIN:1"}, res.Orthologs.Sorted())
	assert.Equal(t, []string{"MP:1", "ZP:1"}, res.Phenotypes.Sorted())
	assert.Equal(t, []string{"MGI:1", "MP:1", "ZFIN:1", "ZP:1"}, res.Nodes.Sorted())
	assert.False(t, res.Nodes.Has("HGNC:1"))
	assert.False(t, res.Nodes.Has("HP:1"))
}

func TestConnections_Closure(t *testing.T) {
	f := newFakeFetcher()
	f.link("A", "RO:1", "B", "PMID:1")
	f.link("B", "RO:2", "C")
	f.link("A", "RO:3", "Z")
	universe := model.NewNodeSet("A", "B", "C")
	x := New(f, Options{Workers: 2})

	res, err := x.Connections(context.Background(), universe)
	require.NoError(t, err)

	require.Equal(t, 2, res.Edges.Len())
	for e := range res.Edges {
		assert.True(t, universe.Has(e.SubjectID))
		assert.True(t, universe.Has(e.ObjectID))
		assert.Equal(t, "label "+e.SubjectID, e.SubjectLabel)
	}
	assert.Equal(t, []int{1000}, f.calls["A"])
}

func TestOrthoPhenoNetwork(t *testing.T) {
	f := newFakeFetcher()
	f.link("HGNC:1", "RO:HOM0000020", "MGI:1")
	f.link("MGI:1", "RO:0002200", "MP:1")
	f.link("MP:1", "RO:0002434", "GO:1")
	x := New(f, Options{})

	net, err := x.OrthoPhenoNetwork(context.Background(), model.NewNodeSet("HGNC:1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"HGNC:1", "MGI:1", "MP:1"}, net.Nodes.Sorted())
	assert.Equal(t, 2, net.Edges.Len())
}

func TestNeighbourNetwork(t *testing.T) {
	f := newFakeFetcher()
	f.link("A", "RO:1", "B")
	f.link("B", "RO:1", "C")
	x := New(f, Options{})

	net, err := x.NeighbourNetwork(context.Background(), model.NewNodeSet("A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, net.Nodes.Sorted())
	assert.Equal(t, 1, net.Edges.Len())
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, nodeID string, rows int) (monarch.FetchResult, error) {
	args := m.Called(ctx, nodeID, rows)
	return args.Get(0).(monarch.FetchResult), args.Error(1)
}

func TestConnections_FailuresReported(t *testing.T) {
	m := &mockFetcher{}
	m.On("Fetch", mock.Anything, "A", 1000).Return(monarch.FetchResult{}, fmt.Errorf("%w: bad json", monarch.ErrDecode))
	m.On("Fetch", mock.Anything, "B", 1000).Return(monarch.FetchResult{}, nil)

	res, err := New(m, Options{}).Connections(context.Background(), model.NewNodeSet("A", "B"))
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, monarch.KindDecode, res.Failures[0].Kind)
	m.AssertExpectations(t)
}
