// workerkill cleans up render worker containers left behind by crashed dev
// servers. Container-isolated pools normally remove their containers on
// shutdown; a SIGKILL'd server cannot.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: workerkill <list|prune> [image]")
		os.Exit(1)
	}

	image := "node:20-slim"
	if len(os.Args) > 2 {
		image = os.Args[2]
	}

	dockerClient, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	containers, err := dockerClient.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		for _, c := range containers {
			if c.Image == image {
				fmt.Printf("%s\t%s\t%s\n", shortID(c.ID), c.State, c.Status)
			}
		}
	case "prune":
		for _, c := range containers {
			if c.Image != image {
				continue
			}
			if err := dockerClient.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
				fmt.Printf("Failed to remove %s: %v\n", shortID(c.ID), err)
				continue
			}
			fmt.Printf("Removed %s\n", shortID(c.ID))
		}
	default:
		fmt.Println("Unknown command.")
		os.Exit(1)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
