// Command cachesim replays memory reference traces through a two-level cache
// hierarchy and reports the hit and miss counts of each level.
package main

import "github.com/sarchlab/avdcache/cmd/cachesim/cmd"

func main() {
	cmd.Execute()
}
