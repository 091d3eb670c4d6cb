package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cheggaaa/pb"
	log "github.com/cihub/seelog"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
)

const (
	defaultImageRepository = "public.ecr.aws/opensearchproject/opensearch"
	defaultContainerName   = "opensearch"
	defaultVersion         = "1.3.13"
	defaultPort            = 9100
	singleNodeEnv          = "discovery.type=single-node"
)

// containerAPI is the part of the Docker engine client the launcher uses.
type containerAPI interface {
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	Close() error
}

// LocalCluster describes the single node container to run.
type LocalCluster struct {
	Image    string
	Version  string
	Name     string
	Port     int
	Env      []string
	SkipPull bool
}

func (c LocalCluster) ImageRef() string {
	image := c.Image
	if image == "" {
		image = defaultImageRepository
	}
	version := c.Version
	if version == "" {
		version = defaultVersion
	}
	return image + ":" + version
}

// Launcher creates and starts local cluster containers.
type Launcher struct {
	docker  containerAPI
	showBar bool
}

func NewLauncher(showBar bool) (*Launcher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "failed to create docker client: %v", err)
	}
	return &Launcher{docker: cli, showBar: showBar}, nil
}

func (l *Launcher) Close() error {
	return l.docker.Close()
}

// Start pulls the image unless told not to, then creates and starts the
// container. It returns the container id.
func (l *Launcher) Start(ctx context.Context, lc LocalCluster) (string, error) {
	ref := lc.ImageRef()
	name := lc.Name
	if name == "" {
		name = defaultContainerName
	}
	port := lc.Port
	if port <= 0 {
		port = defaultPort
	}

	if !lc.SkipPull {
		if err := l.pull(ctx, ref); err != nil {
			return "", err
		}
	}

	p, err := nat.NewPort("tcp", strconv.Itoa(port))
	if err != nil {
		return "", errors.Wrapf(err, "invalid port %d", port)
	}

	env := append([]string{singleNodeEnv}, lc.Env...)
	config := &container.Config{
		Image:        ref,
		Env:          env,
		ExposedPorts: nat.PortSet{p: struct{}{}},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			p: []nat.PortBinding{{HostPort: p.Port()}},
		},
	}

	log.Infof("creating container %s from %s", name, ref)
	created, err := l.docker.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		if errdefs.IsConflict(err) {
			return "", errors.Errorf("a container named %s already exists, remove it or pick another --name", name)
		}
		if errdefs.IsNotFound(err) {
			return "", errors.Errorf("image %s not found locally, run without --skip-pull", ref)
		}
		return "", errors.Wrapf(err, "failed to create container %s", name)
	}
	for _, w := range created.Warnings {
		log.Warn(w)
	}

	if err := l.docker.ContainerStart(ctx, created.ID, types.ContainerStartOptions{}); err != nil {
		return "", errors.Wrapf(err, "failed to start container %s", name)
	}
	log.Infof("container %s (%s) started, port %d", name, shortID(created.ID), port)
	return created.ID, nil
}

func (l *Launcher) pull(ctx context.Context, ref string) error {
	log.Infof("pulling image %s", ref)
	rc, err := l.docker.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to pull image %s", ref)
	}
	defer rc.Close()

	var bar *pb.ProgressBar
	if l.showBar {
		bar = pb.New(0).Prefix("Pull ")
		bar.SetUnits(pb.U_BYTES)
		bar.Start()
		defer bar.Finish()
	}

	if err := consumePullStream(rc, bar); err != nil {
		return errors.WithMessagef(err, "failed to pull image %s", ref)
	}
	return nil
}

// consumePullStream reads the engine's JSON progress messages until EOF,
// summing per layer progress into bar when there is one.
func consumePullStream(r io.Reader, bar *pb.ProgressBar) error {
	dec := json.NewDecoder(r)
	layers := map[string]jsonmessage.JSONProgress{}

	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "failed to decode pull progress")
		}
		if msg.Error != nil {
			return errors.New(msg.Error.Message)
		}
		if msg.ErrorMessage != "" {
			return errors.New(msg.ErrorMessage)
		}

		if msg.Progress != nil && msg.ID != "" {
			layers[msg.ID] = *msg.Progress
		} else if msg.Status != "" {
			log.Debug(fmt.Sprintf("%s %s", msg.ID, msg.Status))
		}

		if bar != nil {
			var current, total int64
			for _, p := range layers {
				current += p.Current
				total += p.Total
			}
			bar.Total = total
			bar.Set64(current)
		}
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
