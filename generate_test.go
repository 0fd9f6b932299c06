package qbridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/qbridge/internal/naming"
	"github.com/jward/qbridge/internal/store"
)

func indexSource(t *testing.T, e *Engine, src string) string {
	t.Helper()
	path := writeRustFile(t, t.TempDir(), "lib.rs", src)
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	return path
}

func TestGenerate_StoresFragmentsAndSignals(t *testing.T) {
	e := newTestEngine(t)
	indexSource(t, e, myObjectSource)

	stats, err := e.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GenerateStats{Objects: 1, Generated: 1}, stats)

	obj := onlyQObject(t, e)
	assert.NotEmpty(t, obj.GeneratedHash)

	bridge, err := e.Store().FragmentsByQObject(obj.ID, store.SectionBridge)
	require.NoError(t, err)
	// getter + setter per property, then one notify declaration each.
	require.Len(t, bridge, 6)
	assert.Contains(t, bridge[0].Source, `#[cxx_name = "getNumber"]`)
	assert.Contains(t, bridge[1].Source, `#[cxx_name = "setNumber"]`)
	assert.Contains(t, bridge[3].Source, "value: QString);")
	assert.Contains(t, bridge[4].Source, `#[rust_name = "number_changed"]`)
	assert.Contains(t, bridge[5].Source, "fn stringChanged(self: Pin<&mut MyObject>);")
	for i, f := range bridge {
		assert.Equal(t, i, f.Ordinal)
		require.NotNil(t, f.PropertyID)
	}

	impl, err := e.Store().FragmentsByQObject(obj.ID, store.SectionImplementation)
	require.NoError(t, err)
	require.Len(t, impl, 8)
	assert.Contains(t, impl[3].Source, "pub fn set_number(mut self: core::pin::Pin<&mut Self>, value: i32)")
	assert.Contains(t, impl[3].Source, "self.as_mut().number_changed();")
	assert.True(t, strings.HasPrefix(impl[2].Source, "impl MyObjectRust {"))
	assert.Contains(t, impl[2].Source, "cpp: core::pin::Pin<&mut qobject::MyObject>")

	props, err := e.Store().PropertiesByQObject(obj.ID)
	require.NoError(t, err)
	assert.Equal(t, props[0].ID, *bridge[0].PropertyID)
	assert.Equal(t, props[1].ID, *bridge[5].PropertyID)

	signals, err := e.Store().SignalsByQObject(obj.ID)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "number_changed", signals[0].RustName)
	assert.Equal(t, "numberChanged", signals[0].CppName)
	assert.Equal(t, "property", signals[0].Origin)
	assert.Equal(t, props[0].ID, *signals[0].PropertyID)
	assert.Equal(t, bridge[4].Source, signals[0].Declaration)
	assert.Equal(t, "string_changed", signals[1].RustName)
}

func TestGenerate_DeclaredSignalsFollowNotifySignals(t *testing.T) {
	e := newTestEngine(t)
	indexSource(t, e, `#[cxx_qt::bridge]
pub mod qobject {
    extern "RustQt" {
        #[qobject]
        #[qproperty(i32, number)]
        type MyObject = super::MyObjectRust;

        #[qsignal]
        #[cxx_name = "dataChanged"]
        fn data_changed(self: Pin<&mut MyObject>, first: i32, second: QString);
    }
}
`)

	_, err := e.Generate(context.Background())
	require.NoError(t, err)

	obj := onlyQObject(t, e)
	signals, err := e.Store().SignalsByQObject(obj.ID)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "number_changed", signals[0].RustName)
	assert.Equal(t, "data_changed", signals[1].RustName)
	assert.Equal(t, "dataChanged", signals[1].CppName)
	assert.Equal(t, "declared", signals[1].Origin)
	assert.Nil(t, signals[1].PropertyID)
	assert.Contains(t, signals[1].Declaration, "fn dataChanged(self: Pin<&mut MyObject>, first: i32, second: QString);")
}

func TestGenerate_SkipsUnchangedObjects(t *testing.T) {
	e := newTestEngine(t)
	indexSource(t, e, myObjectSource)
	ctx := context.Background()

	_, err := e.Generate(ctx)
	require.NoError(t, err)

	stats, err := e.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, GenerateStats{Objects: 1, Skipped: 1}, stats)

	e.force = true
	stats, err = e.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, GenerateStats{Objects: 1, Generated: 1}, stats)
}

func TestGenerate_RegeneratesAfterEdit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := indexSource(t, e, myObjectSource)

	_, err := e.Generate(ctx)
	require.NoError(t, err)

	edited := strings.Replace(myObjectSource, "#[qproperty(i32, number)]", "#[qproperty(i64, number)]", 1)
	writeRustFile(t, "", path, edited)
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	stats, err := e.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Generated)

	obj := onlyQObject(t, e)
	frags, err := e.Store().FragmentsByQObject(obj.ID, store.SectionBridge)
	require.NoError(t, err)
	assert.Contains(t, frags[0].Source, "-> &'a i64;")
}

func TestGenerate_QualifiesSiblingObjects(t *testing.T) {
	e := newTestEngine(t)
	indexSource(t, e, `#[cxx_qt::bridge]
pub mod inner {
    extern "RustQt" {
        #[qobject]
        type Child = super::ChildRust;

        #[qobject]
        #[qproperty(*mut Child, child)]
        #[qproperty(UniquePtr<QString>, name)]
        type Parent = super::ParentRust;
    }
}
`)

	stats, err := e.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Generated)

	objs, err := e.Query().QObjectByName("Parent")
	require.NoError(t, err)
	require.Len(t, objs, 1)

	bridge, err := e.Store().FragmentsByQObject(objs[0].ID, store.SectionBridge)
	require.NoError(t, err)
	assert.Contains(t, bridge[1].Source, "unsafe fn set_child(self: &mut ParentRust, cpp: Pin<&mut Parent>, value: *mut Child);")
	assert.Contains(t, bridge[3].Source, "    fn set_name(")

	impl, err := e.Store().FragmentsByQObject(objs[0].ID, store.SectionImplementation)
	require.NoError(t, err)
	assert.Contains(t, impl[3].Source, "value: *mut inner::Child)")
	assert.Contains(t, impl[7].Source, "value: cxx::UniquePtr<QString>)")
}

func TestGenerate_CollidingNamesFail(t *testing.T) {
	e := newTestEngine(t)
	indexSource(t, e, `#[cxx_qt::bridge]
pub mod qobject {
    extern "RustQt" {
        #[qobject]
        #[qproperty(i32, my_value)]
        #[qproperty(i32, myValue)]
        type MyObject = super::MyObjectRust;
    }
}
`)

	_, err := e.Generate(context.Background())
	require.Error(t, err)

	var objErr *ObjectError
	require.True(t, errors.As(err, &objErr))
	assert.Equal(t, "MyObject", objErr.Object)
	var collision *naming.CollisionError
	assert.True(t, errors.As(err, &collision))

	obj := onlyQObject(t, e)
	assert.Empty(t, obj.GeneratedHash, "nothing is committed on failure")
}

func TestGenerate_InvalidTypeFails(t *testing.T) {
	e := newTestEngine(t)
	indexSource(t, e, `#[cxx_qt::bridge]
pub mod qobject {
    extern "RustQt" {
        #[qobject]
        #[qproperty(&&&, broken)]
        type MyObject = super::MyObjectRust;
    }
}
`)

	_, err := e.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "property broken")
}

func TestGenerate_NoObjects(t *testing.T) {
	e := newTestEngine(t)
	stats, err := e.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GenerateStats{}, stats)
}

func TestGenerateObject_RecoversDefects(t *testing.T) {
	e := newTestEngine(t)
	job := &generateJob{
		bridge: &store.Bridge{Module: "qobject"},
		object: &store.QObject{Name: "MyObject", RustStruct: "MyObjectRust"},
		signals: []*store.DeclaredSignal{
			{Name: ""}, // an unnamed signal never reaches generation from extraction
		},
	}

	_, err := e.generateObject(context.Background(), job)
	require.Error(t, err)
	var objErr *ObjectError
	require.True(t, errors.As(err, &objErr))
	assert.Equal(t, "MyObject", objErr.Object)
	assert.Contains(t, err.Error(), "signal has no identifier")
}

func TestGenerateJob_Mappings(t *testing.T) {
	job := &generateJob{
		bridge:   &store.Bridge{Module: "ui"},
		siblings: []*store.QObject{{Name: "A"}, {Name: "B"}},
	}
	m := job.mappings()
	require.Len(t, m, 2)
	assert.Equal(t, "ui::A", m["A"].String())
	assert.Equal(t, "ui::B", m["B"].String())
}
