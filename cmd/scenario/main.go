package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/client"
	"github.com/antonio-alexander/go-employee-portal/internal/controller"
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

// terminal stands in for the view, it answers confirmations from
// SCENARIO_CONFIRM and logs notifications and navigation
type terminal struct {
	confirm bool
	utilities.Logger
}

func (t *terminal) Confirm(ctx context.Context, name string) bool {
	t.Info(ctx, "are you sure you want to delete %s? %t", name, t.confirm)
	return t.confirm
}

func (t *terminal) NotifySuccess(ctx context.Context, message string) {
	t.Info(ctx, "success: %s", message)
}

func (t *terminal) NotifyError(ctx context.Context, message string) {
	t.Info(ctx, "error: %s", message)
}

func (t *terminal) Navigate(ctx context.Context, route string) {
	t.Info(ctx, "navigating to %s", route)
}

func seedEmployees(ctx context.Context, c client.Client) ([]*data.Employee, error) {
	var employees []*data.Employee

	suffix := internal.GenerateId()[:8]
	for _, fields := range []data.EmployeeFields{
		{FirstName: "Ada", LastName: "Lovelace", Department: "Engineering"},
		{FirstName: "Grace", LastName: "Hopper", Department: "IT"},
		{FirstName: "Alan", LastName: "Turing"},
	} {
		fields.Email = fmt.Sprintf("%s.%s@example.com", fields.FirstName, suffix)
		employee, err := c.EmployeeCreate(ctx, fields)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

func logListState(ctx context.Context, logger utilities.Logger, list controller.List) {
	state := list.State()
	logger.Info(ctx, "list (%s): search %q, department %q, %d employees, departments %v",
		state.State, state.Search, state.Department, len(state.Employees), state.Departments)
}

// scenarioList types a search one keystroke at a time, filters by
// department and then deletes through the list and detail flows
func scenarioList(ctx context.Context, envs map[string]string, logger utilities.Logger,
	c client.Client) error {
	const correlationId string = "scenario_list"

	var keystrokeInterval time.Duration = 100 * time.Millisecond

	search := "Hopper"
	if s := envs["SCENARIO_SEARCH"]; s != "" {
		search = s
	}
	if s := envs["SCENARIO_KEYSTROKE_INTERVAL"]; s != "" {
		i, _ := strconv.Atoi(s)
		keystrokeInterval = time.Duration(i) * time.Millisecond
	}
	confirm := true
	if s := envs["SCENARIO_CONFIRM"]; s != "" {
		confirm, _ = strconv.ParseBool(s)
	}
	ctx = internal.CtxWithCorrelationId(ctx, correlationId)
	ui := &terminal{confirm: confirm, Logger: logger}

	employees, err := seedEmployees(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		for _, employee := range employees {
			_, _ = c.EmployeeDelete(ctx, employee.Id)
		}
	}()
	logger.Info(ctx, "created %d employees", len(employees))

	list := controller.NewList(c, ui, logger)
	if err := list.Configure(envs); err != nil {
		return err
	}
	if err := list.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := list.Close(context.Background()); err != nil {
			logger.Error(ctx, "error while closing list: %s", err)
		}
	}()
	waitIdle := func() {
		for i := 0; i < 100; i++ {
			if state := list.State().State; state == controller.StateIdle || state == controller.StateError {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		logListState(ctx, logger, list)
	}
	waitIdle()

	//type the search, only the final text is fetched
	for i := 1; i <= len(search); i++ {
		list.SetSearch(search[:i])
		time.Sleep(keystrokeInterval)
	}
	time.Sleep(time.Second)
	waitIdle()

	//filter by department
	list.SetSearch("")
	list.SetDepartment("Engineering")
	waitIdle()
	list.SetDepartment(data.DepartmentAll)
	waitIdle()

	//delete through the list
	if err := list.Delete(ctx, employees[2].Id); err != nil {
		logger.Error(ctx, "error while deleting %d: %s", employees[2].Id, err)
	}
	logListState(ctx, logger, list)

	//delete through the detail view
	detail := controller.NewDetail(c, ui, logger)
	if err := detail.Configure(envs); err != nil {
		return err
	}
	if _, err := detail.Load(ctx, employees[1].Id); err != nil {
		return err
	}
	if err := detail.Delete(ctx); err != nil {
		logger.Error(ctx, "error while deleting %d: %s", employees[1].Id, err)
	}
	list.Refresh()
	waitIdle()

	//edit through the form
	form := controller.NewForm(c, ui, logger)
	if err := form.Configure(envs); err != nil {
		return err
	}
	fields, err := form.Load(ctx, employees[0].Id)
	if err != nil {
		return err
	}
	fields.Email = "not an email"
	if _, err := form.Submit(ctx, employees[0].Id, fields); err != nil {
		logger.Info(ctx, "form rejected: %s", controller.ErrorMessage(err))
	}
	fields.Email = employees[0].Email
	fields.Department = "Design"
	if _, err := form.Submit(ctx, employees[0].Id, fields); err != nil {
		return err
	}
	return nil
}

// determine hit/miss ratio with concurrent reads when
// invalidating the cache
func scenarioStampedingHerd(ctx context.Context, envs map[string]string, logger utilities.Logger,
	clients ...client.Client) error {
	const correlationId string = "scenario_stampeding_herd"
	const minClients int = 2

	var readInterval time.Duration = time.Second
	var updateInterval time.Duration = 2 * time.Second
	var scenarioDuration time.Duration = 10 * time.Second
	var wg sync.WaitGroup

	if s := envs["SCENARIO_READ_INTERVAL"]; s != "" {
		i, _ := strconv.Atoi(s)
		readInterval = time.Duration(i) * time.Second
	}
	if s := envs["SCENARIO_UPDATE_INTERVAL"]; s != "" {
		i, _ := strconv.Atoi(s)
		updateInterval = time.Duration(i) * time.Second
	}
	if s := envs["SCENARIO_DURATION"]; s != "" {
		i, _ := strconv.Atoi(s)
		scenarioDuration = time.Duration(i) * time.Second
	}
	if len(clients) < minClients {
		return errors.New("not enough clients provided")
	}
	ctx = internal.CtxWithCorrelationId(ctx, correlationId)

	// create employee using the first client
	fields := data.EmployeeFields{
		FirstName:  "Herd",
		LastName:   internal.GenerateId()[:8],
		Email:      internal.GenerateId()[:8] + "@example.com",
		Department: "Operations",
	}
	employeeCreated, err := clients[0].EmployeeCreate(ctx, fields)
	if err != nil {
		return err
	}
	id := employeeCreated.Id
	defer func(id int64) {
		_, _ = clients[0].EmployeeDelete(ctx, id)
		logger.Info(ctx, "deleted employee: %d", id)
	}(id)
	logger.Info(ctx, "created employee: %d", id)

	start, stop := make(chan struct{}), make(chan struct{})

	//create writer go routine
	wg.Add(1)
	go func(ctx context.Context, client client.Client) {
		defer wg.Done()

		tUpdate := time.NewTicker(updateInterval)
		defer tUpdate.Stop()
		<-start
		for {
			select {
			case <-stop:
				return
			case <-tUpdate.C:
				fields.LastName = internal.GenerateId()[:8]
				if _, err := client.EmployeeUpdate(ctx, id, fields); err != nil {
					logger.Error(ctx, "error while updating employee: %s", err)
				}
			}
		}
	}(ctx, clients[0])

	//create reader go routines
	for i := 1; i < len(clients); i++ {
		wg.Add(1)
		go func(ctx context.Context, clientNumber int, client client.Client) {
			defer wg.Done()

			ctx = internal.CtxWithCorrelationId(ctx, fmt.Sprintf("%s_%d", correlationId, clientNumber))
			tRead := time.NewTicker(readInterval)
			defer tRead.Stop()
			<-start
			for {
				select {
				case <-stop:
					return
				case <-tRead.C:
					if _, err := client.EmployeeRead(ctx, id); err != nil {
						logger.Error(ctx, "error while reading employee: %s", err)
					}
					if _, err := client.EmployeesSearch(ctx, data.EmployeeSearch{Search: "Herd"}); err != nil {
						logger.Error(ctx, "error while searching employees: %s", err)
					}
				}
			}
		}(ctx, i, clients[i])
	}

	//clear cache counters and start the go routines
	if err := clients[0].CacheClear(ctx); err != nil {
		return err
	}
	if err := clients[0].CacheCountersClear(ctx); err != nil {
		return err
	}
	close(start)
	<-time.After(scenarioDuration)
	close(stop)
	wg.Wait()

	//use initial client to get hit/miss ratios from server
	cacheCounters, err := clients[0].CacheCountersRead(ctx)
	if err != nil {
		return err
	}
	for _, key := range []string{"employee_read", "employees_search"} {
		hit, miss := cacheCounters.CounterHits[key], cacheCounters.CounterMisses[key]
		if total := hit + miss; total > 0 {
			logger.Info(ctx, "%s cache hit miss ratio (%d/%d): %0.2f%%",
				key, hit, total, float64(hit)/float64(total)*100)
		}
	}
	return nil
}

func Main(args []string, envs map[string]string, osSignal chan (os.Signal)) error {
	var clients []client.Client
	var wg sync.WaitGroup

	if configFile := envs["CONFIG_FILE"]; configFile != "" {
		if err := internal.ReadConfigFile(configFile, envs); err != nil {
			return err
		}
	}

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create logger
	logger := utilities.NewLogger()
	_ = logger.Configure(envs)

	//print version info
	logger.Info(ctx, "scenarios: go-employee-portal v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	nClients, _ := strconv.Atoi(envs["N_CLIENTS"])
	nClients = max(nClients, 1)
	for range nClients {
		client := client.NewClient(logger)
		if err := client.Configure(envs); err != nil {
			return err
		}
		if err := client.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Error(ctx, "error while closing client: %s", err)
			}
		}()
		clients = append(clients, client)
	}

	// execute scenario
	switch scenario := envs["SCENARIO"]; scenario {
	default:
		return errors.Errorf("unsupported scenario: %s", scenario)
	case "stampeding_herd":
		logger.Info(ctx, "executing %s scenario", scenario)
		if err := scenarioStampedingHerd(ctx, envs, logger, clients...); err != nil {
			logger.Error(ctx, "error while executing %s scenario: %s", scenario, err)
		}
	case "list":
		logger.Info(ctx, "executing %s scenario", scenario)
		if err := scenarioList(ctx, envs, logger, clients[0]); err != nil {
			logger.Error(ctx, "error while executing %s scenario: %s", scenario, err)
		}
	}
	cancel()
	wg.Wait()
	return nil
}
