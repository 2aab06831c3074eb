package decaf_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hupe1980/decaf"
	"github.com/hupe1980/decaf/manifest"
	"github.com/hupe1980/decaf/output"
	"github.com/hupe1980/decaf/sparse"
	"github.com/hupe1980/decaf/unit"
)

// exampleProvider stands in for a real decompiler backend.
type exampleProvider struct{}

func (exampleProvider) ClassEntryName(_ *unit.Context, _ unit.Class, entryName string) (string, bool) {
	return strings.TrimSuffix(entryName, ".class") + ".java", true
}

func (exampleProvider) ClassContent(_ *unit.Context, cl unit.Class) (string, error) {
	return "// decompiled " + cl.QualifiedName, nil
}

// Example_folderUnit demonstrates decompiling a folder of classes into an
// in-memory sink.
func Example_folderUnit() {
	ctx := context.Background()
	sink := output.NewMemory()

	d, err := decaf.New(exampleProvider{}, sink)
	if err != nil {
		log.Fatal(err)
	}

	u := d.FolderUnit("out/app")
	u.AddClass(unit.Class{QualifiedName: "com/example/Main", EntryName: "com/example/Main.class", Own: true})

	if err := d.SaveAll(ctx); err != nil {
		log.Fatal(err)
	}

	content, _ := sink.File("out/app", "com/example/Main.java")
	fmt.Println(content)
	// Output: // decompiled com/example/Main
}

// Example_archiveUnit demonstrates writing a jar with a generated
// manifest.
func Example_archiveUnit() {
	ctx := context.Background()
	sink := output.NewMemory()

	// One worker keeps the entry order deterministic for the example.
	d, err := decaf.New(exampleProvider{}, sink, decaf.WithThreads(1))
	if err != nil {
		log.Fatal(err)
	}

	mf := manifest.New()
	mf.Main.Set("Created-By", "decaf")

	u := d.ArchiveUnit(unit.Jar, "out", "app.jar")
	u.SetManifest(mf)
	u.AddDirEntry("com/")
	u.AddClass(unit.Class{QualifiedName: "com/example/Foo", EntryName: "com/example/Foo.class", Own: true})
	u.AddClass(unit.Class{QualifiedName: "com/example/Bar", EntryName: "com/example/Bar.class", Own: true})

	if err := d.SaveAll(ctx); err != nil {
		log.Fatal(err)
	}

	for _, name := range sink.ArchiveEntryNames("out", "app.jar") {
		fmt.Println(name)
	}
	// Output:
	// META-INF/MANIFEST.MF
	// com/
	// com/example/Foo.java
	// com/example/Bar.java
}

// Example_metrics demonstrates collecting save metrics.
func Example_metrics() {
	ctx := context.Background()
	metrics := &decaf.BasicMetricsCollector{}

	d, err := decaf.New(exampleProvider{}, output.NewMemory(), decaf.WithMetricsCollector(metrics))
	if err != nil {
		log.Fatal(err)
	}

	u := d.FolderUnit("out/app")
	u.AddClass(unit.Class{QualifiedName: "com/example/Main", EntryName: "com/example/Main.class", Own: true})

	if err := d.SaveAll(ctx); err != nil {
		log.Fatal(err)
	}

	stats := metrics.GetStats()
	fmt.Printf("units=%d classes=%d failed=%d\n", stats.SaveAllUnits, stats.ClassesWritten, stats.SaveAllFailed)
	// Output: units=1 classes=1 failed=0
}

// Example_sparseSets demonstrates the sparse bit set family used by
// dataflow analyses.
func Example_sparseSets() {
	factory := sparse.NewFactory[string]()

	live := factory.EmptySet()
	live.Add("x")
	live.Add("y")

	killed := factory.EmptySet()
	killed.Add("y")

	live.DifferenceWith(killed)

	fmt.Println(live.Contains("x"), live.Contains("y"))
	// Output: true false
}
