package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"guestpost/internal/apiclient"
	"guestpost/internal/catalog"
	"guestpost/internal/models"
	"guestpost/internal/verification"
)

var errUsage = errors.New("invalid arguments, run listing without arguments for usage")

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid website id %q", raw)
	}
	return uint(id), nil
}

// positional splits leading positional args from flags so both orders work.
func positional(fs *flag.FlagSet, args []string, n int) ([]string, error) {
	if len(args) < n {
		return nil, errUsage
	}
	if err := fs.Parse(args[n:]); err != nil {
		return nil, err
	}
	return args[:n], nil
}

func runLogin(ctx context.Context, app *cli, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	apiURL := fs.String("api", "", "API base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errUsage
	}
	if *apiURL != "" {
		app.api = apiclient.New(*apiURL)
	}

	res, err := app.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := app.store.SaveSession(app.api.BaseURL(), res.Data.Token); err != nil {
		return err
	}
	fmt.Printf("✅ Logged in as %s (%s)\n", res.Data.User.Username, res.Data.User.Role)
	return nil
}

func runAdd(ctx context.Context, app *cli, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	res, err := app.api.AddWebsite(ctx, args[0])
	if err != nil {
		return err
	}
	if err := app.store.Save(res.Data.ID); err != nil {
		return err
	}

	if res.Existed {
		fmt.Printf("ℹ️  %s is already listed (ID %d, %s)\n", res.Data.Domain, res.Data.ID, res.Data.Stage)
	} else {
		fmt.Printf("✅ Added %s (ID %d)\n", res.Data.Domain, res.Data.ID)
	}
	switch res.NextStep {
	case models.NextStepVerify:
		fmt.Printf("Next: listing methods %d\n", res.Data.ID)
	case models.NextStepPricing:
		fmt.Printf("Next: listing price %d --publishing <amount>\n", res.Data.ID)
	default:
		fmt.Println("Nothing left to do for this website.")
	}
	return nil
}

func runList(ctx context.Context, app *cli, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := app.api.ListWebsites(ctx, models.WebsiteStatus(*status))
	if err != nil {
		return err
	}
	printWebsites(res.Data)
	return nil
}

func printWebsites(page models.Page[models.Website]) {
	if len(page.Items) == 0 {
		fmt.Println("No websites found")
		return
	}
	for _, w := range page.Items {
		fmt.Printf("ID: %d | %s | %s | verification %s | $%.2f\n",
			w.ID, w.Domain, w.Stage, w.VerificationStatus, w.PublishingPrice)
	}
	if int64(len(page.Items)) < page.Total {
		fmt.Printf("... %d more\n", page.Total-int64(len(page.Items)))
	}
}

func loadWorkflow(ctx context.Context, app *cli, rawID string) (*verification.Workflow, *models.Website, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, nil, err
	}
	res, err := app.api.GetWebsite(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	site := res.Data
	return verification.NewWorkflow(app.api, app.store, &site), &site, nil
}

func runMethods(ctx context.Context, app *cli, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	wf, site, err := loadWorkflow(ctx, app, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Verification methods for %s:\n", site.Domain)
	for _, opt := range wf.Options() {
		if opt.Disabled {
			fmt.Printf("  ✗ %-22s %s (%s)\n", opt.Method, opt.Label, opt.Reason)
			continue
		}
		fmt.Printf("  ✓ %-22s %s\n", opt.Method, opt.Label)
	}
	if !wf.CanStartVerification() {
		fmt.Printf("Website is approved. Continue with: listing price %d\n", site.ID)
	}
	return nil
}

func runVerify(ctx context.Context, app *cli, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	reason := fs.String("reason", "", "justification for another_method")
	yes := fs.Bool("yes", false, "do not wait for confirmation before checking the html file")
	pos, err := positional(fs, args, 2)
	if err != nil {
		return err
	}

	wf, _, err := loadWorkflow(ctx, app, pos[0])
	if err != nil {
		return err
	}
	if !wf.CanStartVerification() {
		return errors.New("website is already approved, verification is not needed")
	}
	if err := wf.Choose(models.VerificationMethod(pos[1])); err != nil {
		return err
	}
	if err := wf.Start(ctx); err != nil {
		return err
	}

	step, _ := wf.State().(verification.Verify)
	switch {
	case step.Method == models.MethodHTMLFile:
		fmt.Printf("1. Create a file named %s\n", step.FileName)
		fmt.Printf("2. Put exactly this content in it: %s\n", step.FileContent)
		fmt.Printf("3. Upload it to the root of your site so it is served at /%s\n", step.FileName)
		if !*yes {
			fmt.Print("Press Enter once the file is uploaded...")
			_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		}
		if err := wf.ConfirmHTMLFile(ctx); err != nil {
			return err
		}
	case step.Method.IsGoogle():
		fmt.Println("Open this link and sign in with the Google account that manages the site:")
		fmt.Println(step.AuthURL)
		fmt.Println("When the browser lands on the success page, run: listing return '<that url>'")
		return nil
	case step.Method == models.MethodAnotherMethod:
		if err := wf.SubmitReason(ctx, *reason); err != nil {
			return err
		}
	}

	return report(wf)
}

func runReturn(ctx context.Context, app *cli, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	leg, err := verification.ParseReturnLeg(args[0])
	if err != nil {
		return err
	}
	wf := verification.NewWorkflow(app.api, app.store, nil)
	if err := wf.CompleteOAuth(ctx, leg); err != nil {
		return err
	}
	return report(wf)
}

func report(wf *verification.Workflow) error {
	switch s := wf.State().(type) {
	case verification.Success:
		fmt.Println("✅ Verification complete. The website is waiting for moderation.")
	case verification.OwnershipTransferred:
		fmt.Println("✅ Verified. This domain was listed by another account and is now yours.")
	case verification.Failed:
		return errors.New(s.Message)
	default:
		return fmt.Errorf("verification stopped at step %s", s.Name())
	}

	id, err := wf.Continue()
	if err != nil {
		return err
	}
	fmt.Printf("Next: listing price %d --publishing <amount>\n", id)
	return nil
}

func runPrice(ctx context.Context, app *cli, args []string) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	publishing := fs.Float64("publishing", -1, "publishing price")
	copywriting := fs.Float64("copywriting", -1, "copywriting price")
	homepage := fs.Float64("homepage", -1, "homepage announcement price")
	sensitive := fs.Float64("sensitive-extra", -1, "extra charge for sensitive content")
	discount := fs.Float64("discount", -1, "discount percentage")
	category := fs.String("category", "", "primary category")
	categories := fs.String("categories", "", "comma-separated categories")
	keywords := fs.String("keywords", "", "comma-separated keywords")
	country := fs.String("country", "", "main country")
	countries := fs.String("additional-countries", "", "comma-separated additional countries")
	language := fs.String("language", "", "main language")
	languages := fs.String("additional-languages", "", "comma-separated additional languages")
	description := fs.String("description", "", "description")
	submit := fs.Bool("submit", false, "submit for moderation")

	var rawID string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		rawID, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	var id uint
	if rawID != "" {
		parsed, err := parseID(rawID)
		if err != nil {
			return err
		}
		id = parsed
	} else {
		stored, ok, err := app.store.Load()
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("no website id given and none remembered from a previous step")
		}
		id = stored
	}

	current, err := app.api.GetWebsite(ctx, id)
	if err != nil {
		return err
	}
	fields := models.ListingOf(&current.Data)

	setFloat := func(dst *float64, v float64) {
		if v >= 0 {
			*dst = v
		}
	}
	setFloat(&fields.PublishingPrice, *publishing)
	setFloat(&fields.CopywritingPrice, *copywriting)
	setFloat(&fields.HomepageAnnouncementPrice, *homepage)
	setFloat(&fields.SensitiveContentExtraCharge, *sensitive)
	setFloat(&fields.DiscountPercentage, *discount)
	if *category != "" {
		fields.Category = *category
	}
	if *categories != "" {
		fields.AllCategories = catalog.Cap(splitList(*categories), catalog.MaxCategories)
	}
	if *keywords != "" {
		fields.Keywords = catalog.Cap(splitList(*keywords), catalog.MaxKeywords)
	}
	if *country != "" {
		fields.Country = *country
	}
	if *countries != "" {
		fields.AdditionalCountries = catalog.Cap(splitList(*countries), catalog.MaxCountries)
	}
	if *language != "" {
		fields.MainLanguage = *language
	}
	if *languages != "" {
		fields.AdditionalLanguages = catalog.Cap(splitList(*languages), catalog.MaxLanguages)
	}
	if *description != "" {
		fields.Description = *description
	}

	req := apiclient.UpdateRequest{ListingFields: fields}
	if *submit {
		req.Status = models.WebsiteStatusSubmitted
	}
	res, err := app.api.UpdateWebsite(ctx, id, req)
	if err != nil {
		return err
	}
	if res.Message != "" {
		fmt.Printf("✅ %s\n", res.Message)
	}
	fmt.Printf("%s is now %s\n", res.Data.Domain, res.Data.Stage)
	if res.Data.Status == models.WebsiteStatusSubmitted {
		if err := app.store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  could not forget the current website: %s\n", err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func runQueue(ctx context.Context, app *cli, args []string) error {
	fs := flag.NewFlagSet("queue", flag.ContinueOnError)
	status := fs.String("status", string(models.WebsiteStatusSubmitted), "status to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := app.api.AdminQueue(ctx, models.WebsiteStatus(*status))
	if err != nil {
		return err
	}
	printWebsites(res.Data)
	return nil
}

func runReject(ctx context.Context, app *cli, args []string) error {
	fs := flag.NewFlagSet("reject", flag.ContinueOnError)
	reason := fs.String("reason", "", "why the listing is rejected")
	pos, err := positional(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	res, err := app.api.Reject(ctx, id, *reason)
	if err != nil {
		return err
	}
	printAction(res)
	return nil
}

func adminAction(action string) func(context.Context, *cli, []string) error {
	return func(ctx context.Context, app *cli, args []string) error {
		if len(args) != 1 {
			return errUsage
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var res *apiclient.Response[models.Website]
		switch action {
		case "review":
			res, err = app.api.Review(ctx, id)
		case "approve":
			res, err = app.api.Approve(ctx, id)
		case "pause":
			res, err = app.api.Pause(ctx, id)
		case "resume":
			res, err = app.api.Resume(ctx, id)
		case "delete":
			res, err = app.api.Delete(ctx, id)
		default:
			return fmt.Errorf("unknown action %s", action)
		}
		if err != nil {
			return err
		}
		printAction(res)
		return nil
	}
}

func printAction(res *apiclient.Response[models.Website]) {
	msg := res.Message
	if msg == "" {
		msg = "Done"
	}
	fmt.Printf("✅ %s: %s is %s\n", msg, res.Data.Domain, res.Data.Status)
}
