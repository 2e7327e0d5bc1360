/*
Package mobynet discovers the network namespace of a Docker container, as
well as the names of other containers reachable via the Docker networks the
container is attached to. Together with Docker's embedded DNS resolver at
[EmbeddedResolver] this allows digging and verifying hosts from the
perspective of a specific container.
*/
package mobynet
