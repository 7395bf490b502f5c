// © 2025 slabitem authors. MIT License.

package main

import (
    "flag"
    "time"
)

type options struct {
    target           string
    json             bool
    watch            bool
    interval         time.Duration
    heapProfile      string
    goroutineProfile string
    version          bool
}

func parseFlags() *options {
    opts := &options{}
    flag.StringVar(&opts.target, "target", "http://localhost:6060", "base URL of the target process")
    flag.BoolVar(&opts.json, "json", false, "print the snapshot as JSON instead of a table")
    flag.BoolVar(&opts.watch, "watch", false, "poll the snapshot endpoint repeatedly")
    flag.DurationVar(&opts.interval, "interval", 2*time.Second, "poll interval in watch mode")
    flag.StringVar(&opts.heapProfile, "heap-profile", "", "download a heap profile to this path and exit")
    flag.StringVar(&opts.goroutineProfile, "goroutine-profile", "", "download a goroutine profile to this path and exit")
    flag.BoolVar(&opts.version, "version", false, "print the CLI version and exit")
    flag.Parse()
    return opts
}
