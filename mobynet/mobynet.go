// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package mobynet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/siemens/urlhost/host"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/thediveo/lxkns/log"
)

// EmbeddedResolver is the address of Docker's embedded DNS resolver inside
// containers attached to custom networks.
const EmbeddedResolver = "127.0.0.11:53"

// Inspector is the part of the Docker client API needed to discover a
// container's network namespace and attached networks.
type Inspector interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	NetworkInspect(ctx context.Context, networkID string, options types.NetworkInspectOptions) (types.NetworkResource, error)
}

var _ Inspector = (*client.Client)(nil)

// Network describes a single Docker network in terms of its name, as well as
// the DNS labels of the attached containers and associated service names.
type Network struct {
	Label  string   `json:"label"`  // name of Docker network used as DNS "TLD" label.
	Labels []string `json:"labels"` // container and service/alias names used as DNS labels.
}

// NewClient returns a new Docker client configured from the environment
// (DOCKER_HOST et cetera), negotiating the API version with the daemon.
func NewClient() (*client.Client, error) {
	return client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
}

// ContainerNetns returns the filesystem reference to the network namespace of
// the specified running container, as well as the address of Docker's
// embedded DNS resolver to use from inside this network namespace.
func ContainerNetns(ctx context.Context, moby Inspector, nameOrID string) (netnsref string, resolver string, err error) {
	details, err := moby.ContainerInspect(ctx, nameOrID)
	if err != nil {
		return "", "", err
	}
	netnsref, err = netnsOf(nameOrID, details)
	if err != nil {
		return "", "", err
	}
	return netnsref, EmbeddedResolver, nil
}

func netnsOf(nameOrID string, details types.ContainerJSON) (string, error) {
	if details.ContainerJSONBase == nil || details.State == nil || details.State.Pid == 0 {
		return "", fmt.Errorf("container %q is not running", nameOrID)
	}
	return fmt.Sprintf("/proc/%d/ns/net", details.State.Pid), nil
}

// DiscoverAttachedNames takes on the position of the “origin” or “center”
// container identified by centerID and then inspects the networks attached to
// this container. It then queries the containers attached to the attached
// networks for their container names and aliases. Additionally, it returns the
// network namespace reference of the center container.
//
// This implementation even works correctly in situations with multiple Docker
// networks having the same name, yet different IDs. Docker networks are
// different from containers in that network names are not necessarily
// unambiguous, while container names always are.
func DiscoverAttachedNames(ctx context.Context, moby Inspector, centerID string) ([]Network, string, error) {
	center, err := moby.ContainerInspect(ctx, centerID)
	if err != nil {
		return nil, "", err
	}
	netnsref, err := netnsOf(centerID, center)
	if err != nil {
		return nil, "", err
	}
	centerName := strings.TrimPrefix(center.Name, "/") // argh, Docker's "/name" legacy!

	if center.NetworkSettings == nil {
		return nil, netnsref, nil
	}
	// In order to avoid repeated inspection of containers that might be
	// connected to multiple networks the center container is also attached
	// to, we cache all inspection results.
	inspected := map[string]types.ContainerJSON{}
	nets := make([]Network, 0, len(center.NetworkSettings.Networks))
	for netName, attachment := range center.NetworkSettings.Networks {
		if attachment == nil {
			continue
		}
		netDetails, err := moby.NetworkInspect(ctx, attachment.NetworkID, types.NetworkInspectOptions{})
		if err != nil {
			return nil, "", err
		}
		// Since service names might refer to multiple containers, each DNS
		// label must appear only once per network.
		labels := map[string]struct{}{}
		for _, attached := range netDetails.Containers {
			if attached.Name == centerName {
				continue
			}
			// networks link to their attached containers by name, not ID.
			details, ok := inspected[attached.Name]
			if !ok {
				details, err = moby.ContainerInspect(ctx, attached.Name)
				if err != nil {
					log.Debugf("mobynet: skipping container %q: %s", attached.Name, err.Error())
					continue
				}
				inspected[attached.Name] = details
			}
			labels[attached.Name] = struct{}{}
			if details.NetworkSettings == nil {
				continue
			}
			if ep := details.NetworkSettings.Networks[netName]; ep != nil {
				for _, alias := range ep.Aliases {
					labels[alias] = struct{}{}
				}
			}
		}
		if len(labels) == 0 {
			continue
		}
		net := Network{Label: netName, Labels: make([]string, 0, len(labels))}
		for label := range labels {
			net.Labels = append(net.Labels, label)
		}
		sort.Strings(net.Labels)
		nets = append(nets, net)
	}
	sort.Slice(nets, func(a, b int) bool { return nets[a].Label < nets[b].Label })
	return nets, netnsref, nil
}

// AttachedHosts returns the hosts that should be addressable from a particular
// container, based on the list of attached networks with DNS labels and
// container names and aliases (also DNS labels). Each label is addressable
// both qualified with its network name as well as unqualified. Labels that
// aren't valid hosts are skipped.
func AttachedHosts(nets []Network, port uint16) []host.HostAndPort {
	hosts := []host.HostAndPort{}
	seen := map[host.Host]struct{}{}
	add := func(name string) {
		h, err := host.Parse(name)
		if err != nil {
			log.Debugf("mobynet: skipping invalid host %q: %s", name, err.Error())
			return
		}
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		hosts = append(hosts, host.HostAndPort{Host: h, Port: port})
	}
	for _, net := range nets {
		for _, label := range net.Labels {
			add(label + "." + net.Label)
		}
	}
	for _, net := range nets {
		for _, label := range net.Labels {
			add(label)
		}
	}
	return hosts
}
