// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a docker or podman runtime and runs detached
// containers, used to host a containerized llama.cpp vision server.
package container

import (
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Mount binds a host path into the container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RunSpec describes a detached container.
type RunSpec struct {
	Image string

	// Ports maps host ports to container ports.
	Ports map[int]int

	Mounts []Mount

	// Args are passed to the image entrypoint.
	Args []string

	// GPUs requests GPU access ("all") when non-empty.
	GPUs string
}

// Runtime provides container operations: checking availability, verifying
// images, and starting and stopping detached containers.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(image string) error

	// Start launches a detached, auto-removed container and returns its ID.
	Start(spec RunSpec) (string, error)

	// Stop stops the container with the given ID.
	Stop(id string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// runtime implements Runtime for a specific container binary. Both Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommand used to check image existence.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Start(spec RunSpec) (string, error) {
	out, err := r.exec.Output(r.bin, runArgs(spec)...)
	if err != nil {
		return "", fmt.Errorf("starting %s container %s: %w", r.bin, spec.Image, err)
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", fmt.Errorf("starting %s container %s: no container id returned", r.bin, spec.Image)
	}
	return id, nil
}

func (r *runtime) Stop(id string) error {
	if err := r.exec.RunSilent(r.bin, "stop", id); err != nil {
		return fmt.Errorf("stopping %s container %s: %w", r.bin, id, err)
	}
	return nil
}

// runArgs builds the "run -d --rm ..." argument list. Ports are emitted in
// ascending host-port order so the command line is stable.
func runArgs(spec RunSpec) []string {
	args := []string{"run", "-d", "--rm"}

	hostPorts := make([]int, 0, len(spec.Ports))
	for hp := range spec.Ports {
		hostPorts = append(hostPorts, hp)
	}
	sort.Ints(hostPorts)
	for _, hp := range hostPorts {
		args = append(args, "-p", "127.0.0.1:"+strconv.Itoa(hp)+":"+strconv.Itoa(spec.Ports[hp]))
	}

	for _, m := range spec.Mounts {
		v := m.Source + ":" + m.Target
		if m.ReadOnly {
			v += ":ro"
		}
		args = append(args, "-v", v)
	}

	if spec.GPUs != "" {
		args = append(args, "--gpus", spec.GPUs)
	}

	args = append(args, spec.Image)
	return append(args, spec.Args...)
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
