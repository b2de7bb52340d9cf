package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// loggen writes a synthetic VM log tree for exercising the scanner against
// realistic data without touching production hosts.

var benignLines = []string{
	"systemd[1]: Started Daily apt upgrade and clean activities.",
	"CRON[%d]: pam_unix(cron:session): session opened for user root(uid=0) by (uid=0)",
	"CRON[%d]: pam_unix(cron:session): session closed for user root",
	"sshd[%d]: Accepted publickey for deploy from 10.0.1.20 port 52214 ssh2",
	"kernel: [%d.123456] docker0: port 1(veth1a2b3c) entered forwarding state",
	"systemd-logind[%d]: New session 42 of user deploy.",
}

var suspiciousLines = []string{
	"sshd[%d]: Failed password for invalid user admin from 203.0.113.77 port 40022 ssh2",
	"sshd[%d]: Failed password for root from 203.0.113.77 port 40023 ssh2",
	"sshd[%d]: Invalid user oracle from 198.51.100.3",
	"sudo:  deploy : TTY=pts/0 PWD=/home/deploy USER=root COMMAND=/usr/bin/systemctl restart nginx",
	"sudo: pam_unix(sudo:session): session opened for user root(uid=0) by deploy(uid=1000)",
	"kernel: [%d.654321] Out of memory: Kill process 9876 (mysqld) score 900 or sacrifice child",
	"kernel: egress (3) pid %d read /etc/passwd write 203.0.113.9:8443 uid 33 gid 33",
	"kernel: egress (4) pid %d read /var/backups/customers.csv write 198.51.100.5:443 uid 0 gid 0",
}

func main() {
	base := flag.String("base", "./testdata/vm-security", "base directory for the generated log tree")
	vms := flag.Int("vms", 3, "number of VM directories to generate")
	lines := flag.Int("lines", 200, "lines per log source")
	badRatio := flag.Float64("bad", 0.1, "fraction of lines drawn from the suspicious pool")
	seed := flag.Int64("seed", 0, "random seed (0 means time-based)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	log.Printf("generating log tree at %s (vms=%d, lines=%d, bad=%.2f, seed=%d)",
		*base, *vms, *lines, *badRatio, *seed)

	for i := 0; i < *vms; i++ {
		vmName := fmt.Sprintf("u2-vm%d", 30000+i)
		dir := filepath.Join(*base, vmName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create %s: %v", dir, err)
		}

		for _, source := range []string{"auth.log", "kern.log", "syslog"} {
			if err := writeSource(rng, filepath.Join(dir, source), *lines, *badRatio); err != nil {
				log.Fatalf("failed to write %s: %v", source, err)
			}
		}
	}

	log.Printf("done: %d VMs generated", *vms)
}

func writeSource(rng *rand.Rand, path string, count int, badRatio float64) error {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		pool := benignLines
		if rng.Float64() < badRatio {
			pool = suspiciousLines
		}
		line := pool[rng.Intn(len(pool))]
		if strings.Contains(line, "%d") {
			line = fmt.Sprintf(line, 1000+rng.Intn(9000))
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
