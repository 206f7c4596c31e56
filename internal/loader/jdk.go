package loader

import (
	"os"
	"path/filepath"
	"sort"
)

// JDKModules returns the .jmod archives of the JDK installed at javaHome, or of
// $JAVA_HOME when javaHome is empty. JDKs without a jmods directory (most
// runtime images) yield nothing.
func JDKModules(javaHome string) []string {
	if javaHome == "" {
		javaHome = os.Getenv("JAVA_HOME")
	}
	if javaHome == "" {
		return nil
	}
	mods, err := filepath.Glob(filepath.Join(javaHome, "jmods", "*.jmod"))
	if err != nil {
		return nil
	}
	sort.Strings(mods)
	return mods
}

// jdkSupertypes is the ancestry of platform classes commonly extended by
// application code. It answers lookups the classpath cannot, so that a type
// extending RuntimeException still counts its full chain without a JDK on the
// classpath. An empty value means the class extends java.lang.Object.
var jdkSupertypes = map[string]string{
	"java.lang.Throwable":                        "",
	"java.lang.Exception":                        "java.lang.Throwable",
	"java.lang.Error":                            "java.lang.Throwable",
	"java.lang.RuntimeException":                 "java.lang.Exception",
	"java.lang.ReflectiveOperationException":     "java.lang.Exception",
	"java.lang.ClassNotFoundException":           "java.lang.ReflectiveOperationException",
	"java.lang.InterruptedException":             "java.lang.Exception",
	"java.lang.CloneNotSupportedException":       "java.lang.Exception",
	"java.lang.IllegalArgumentException":         "java.lang.RuntimeException",
	"java.lang.NumberFormatException":            "java.lang.IllegalArgumentException",
	"java.lang.IllegalStateException":            "java.lang.RuntimeException",
	"java.lang.UnsupportedOperationException":    "java.lang.RuntimeException",
	"java.lang.NullPointerException":             "java.lang.RuntimeException",
	"java.lang.IndexOutOfBoundsException":        "java.lang.RuntimeException",
	"java.lang.ArithmeticException":              "java.lang.RuntimeException",
	"java.lang.ClassCastException":               "java.lang.RuntimeException",
	"java.lang.SecurityException":                "java.lang.RuntimeException",
	"java.lang.AssertionError":                   "java.lang.Error",
	"java.lang.Number":                           "",
	"java.lang.Thread":                           "",
	"java.lang.Enum":                             "",
	"java.lang.Record":                           "",
	"java.io.IOException":                        "java.lang.Exception",
	"java.io.FileNotFoundException":              "java.io.IOException",
	"java.io.UncheckedIOException":               "java.lang.RuntimeException",
	"java.io.InputStream":                        "",
	"java.io.OutputStream":                       "",
	"java.io.Reader":                             "",
	"java.io.Writer":                             "",
	"java.io.FilterInputStream":                  "java.io.InputStream",
	"java.io.FilterOutputStream":                 "java.io.OutputStream",
	"java.util.NoSuchElementException":           "java.lang.RuntimeException",
	"java.util.ConcurrentModificationException":  "java.lang.RuntimeException",
	"java.util.AbstractCollection":               "",
	"java.util.AbstractList":                     "java.util.AbstractCollection",
	"java.util.AbstractSequentialList":           "java.util.AbstractList",
	"java.util.AbstractSet":                      "java.util.AbstractCollection",
	"java.util.AbstractQueue":                    "java.util.AbstractCollection",
	"java.util.AbstractMap":                      "",
	"java.util.ArrayList":                        "java.util.AbstractList",
	"java.util.LinkedList":                       "java.util.AbstractSequentialList",
	"java.util.HashSet":                          "java.util.AbstractSet",
	"java.util.LinkedHashSet":                    "java.util.HashSet",
	"java.util.TreeSet":                          "java.util.AbstractSet",
	"java.util.HashMap":                          "java.util.AbstractMap",
	"java.util.LinkedHashMap":                    "java.util.HashMap",
	"java.util.TreeMap":                          "java.util.AbstractMap",
	"java.util.concurrent.ConcurrentHashMap":     "java.util.AbstractMap",
	"java.util.concurrent.ExecutionException":    "java.lang.Exception",
	"java.util.concurrent.TimeoutException":      "java.lang.Exception",
	"java.util.concurrent.CancellationException": "java.lang.IllegalStateException",
}
