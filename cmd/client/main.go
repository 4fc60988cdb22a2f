package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/client"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/pkg/errors"
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

func main() {
	args := os.Args[1:]
	envs := internal.Envs(os.Environ())
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}

func printJson(item any) error {
	bytes, err := json.MarshalIndent(item, "", " ")
	if err != nil {
		return err
	}
	fmt.Println(string(bytes))
	return nil
}

func fieldsFromEnvs(envs map[string]string) data.EmployeeFields {
	return data.EmployeeFields{
		FirstName:  envs["FIRST_NAME"],
		LastName:   envs["LAST_NAME"],
		Email:      envs["EMAIL"],
		Department: envs["DEPARTMENT"],
	}
}

func Main(args []string, envs map[string]string, osSignal chan (os.Signal)) error {
	fmt.Printf("client: go-employee-portal v%s (%s) built from: %s\n",
		Version, GitCommit, GitBranch)

	if configFile := envs["CONFIG_FILE"]; configFile != "" {
		if err := internal.ReadConfigFile(configFile, envs); err != nil {
			return err
		}
	}

	//create logger
	logger := utilities.NewLogger(os.Stderr)
	_ = logger.Configure(envs)

	//create client
	client := client.NewClient(logger)
	if err := client.Configure(envs); err != nil {
		return err
	}
	if err := client.Open(context.Background()); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			fmt.Printf("error while closing client: %s\n", err)
		}
	}()

	// execute command
	ctx := internal.CtxWithCorrelationId(context.Background(), internal.GenerateId())
	command := envs["COMMAND"]
	id, _ := strconv.ParseInt(envs["EMPLOYEE_ID"], 10, 64)
	switch command {
	default:
		return errors.Errorf("unsupported command: %s", command)
	case "employee_create":
		employee, err := client.EmployeeCreate(ctx, fieldsFromEnvs(envs))
		if err != nil {
			return err
		}
		return printJson(employee)
	case "employee_read":
		employee, err := client.EmployeeRead(ctx, id)
		if err != nil {
			return err
		}
		return printJson(employee)
	case "employees_search":
		employees, err := client.EmployeesSearch(ctx, data.EmployeeSearch{
			Search:     envs["SEARCH"],
			Department: envs["DEPARTMENT"],
		})
		if err != nil {
			return err
		}
		return printJson(employees)
	case "employee_update":
		employee, err := client.EmployeeUpdate(ctx, id, fieldsFromEnvs(envs))
		if err != nil {
			return err
		}
		return printJson(employee)
	case "employee_delete":
		employee, err := client.EmployeeDelete(ctx, id)
		if err != nil {
			return err
		}
		return printJson(employee)
	case "cache_clear":
		return client.CacheClear(ctx)
	case "cache_counters_read":
		counters, err := client.CacheCountersRead(ctx)
		if err != nil {
			return err
		}
		return printJson(counters)
	case "timers_read":
		timers, err := client.TimersRead(ctx)
		if err != nil {
			return err
		}
		return printJson(timers)
	}
}
