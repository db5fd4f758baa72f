// gep-publisher is a standalone Gateway Exchange Protocol publisher: it
// accepts subscriber connections, compiles their filter expressions against
// an in-process metadata catalog, and streams measurements fed to it over
// its Go API.
package main

func main() {
	Execute()
}
