// Command keep is an operator CLI for inspecting and migrating a keep
// identity store.
package main

import "os"

func main() {
	os.Exit(execute())
}
