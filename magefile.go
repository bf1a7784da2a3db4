//go:build mage
// +build mage

package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const (
	appName = "workshop-backend"
	cliName = "workshop-cli"
	distDir = "dist"
)

func Build() error {
	fmt.Println("Building...")

	if err := os.MkdirAll(distDir, 0755); err != nil {
		return err
	}

	if err := copyConfig(); err != nil {
		return err
	}

	if err := goBuild(appName, "./cmd/server"); err != nil {
		return err
	}
	return goBuild(cliName, "./cmd/cli")
}

func Test() error {
	fmt.Println("Testing...")
	cmd := exec.Command("go", "test", "-race", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func Install() error {
	mg.Deps(Build)
	fmt.Println("Installing...")
	return os.Rename(filepath.Join(distDir, appName), "/usr/bin/"+appName)
}

func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll(distDir)
}

func goBuild(name, pkg string) error {
	cmd := exec.Command("go", "build", "-o", filepath.Join(distDir, name), pkg)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// copyConfig ships config.yaml next to the binaries when one exists
func copyConfig() error {
	src, err := os.Open("config.yaml")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error opening config.yaml: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(distDir, "config.yaml"))
	if err != nil {
		return fmt.Errorf("error creating dist config.yaml: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return fmt.Errorf("error copying config file: %w", err)
	}
	return nil
}
