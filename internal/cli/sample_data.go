package cli

import "qa-training-service/internal/domain"

// builtinCatalog provides the bundled scenario tables; demo mode serves them
// directly and `migrate --seed` loads them into postgres.
func builtinCatalog() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"issue-verification": issueVerificationQuiz(),
		"risk-analysis":      riskAnalysisQuiz(),
	}
}

func issueVerificationQuiz() domain.Quiz {
	return domain.Quiz{
		Name:        "issue-verification",
		Title:       "Issue Verification",
		MaxXP:       domain.MaxExperience,
		PassPercent: domain.PassPercent,
		Pools: map[domain.Level][]domain.Scenario{
			domain.LevelBasic: {
				{
					ID: 1, Level: domain.LevelBasic, Title: "New fix arrives",
					Description: "A developer marks a bug as fixed and assigns the ticket back to you. What do you do first?",
					Options: []domain.Option{
						{Text: "Close the ticket, the developer tested it", Outcome: "Unverified fixes regress; the fix was incomplete.", Experience: -10},
						{Text: "Re-read the original report and reproduce the issue on the fixed build", Outcome: "You confirm the exact failing steps before judging the fix.", Experience: 20, Tool: "Repro Checklist"},
						{Text: "Test something nearby and assume the fix works", Outcome: "You missed the actual failing path.", Experience: -5},
					},
				},
				{
					ID: 2, Level: domain.LevelBasic, Title: "Missing steps",
					Description: "The bug report you must verify has no reproduction steps. How do you proceed?",
					Options: []domain.Option{
						{Text: "Reject the ticket outright", Outcome: "The reporter had the details; you lost a day.", Experience: -10},
						{Text: "Ask the reporter for steps and environment while checking commit notes", Outcome: "You rebuild the repro from both sides quickly.", Experience: 20},
						{Text: "Guess the steps from the title", Outcome: "You verified the wrong behaviour.", Experience: -5},
					},
				},
				{
					ID: 3, Level: domain.LevelBasic, Title: "Environment match",
					Description: "The bug was reported on a staging server. Where should verification happen?",
					Options: []domain.Option{
						{Text: "On your local machine, it is faster", Outcome: "Local config hid the issue; the fix wasn't actually deployed.", Experience: -10},
						{Text: "On the environment and build where the bug was reported", Outcome: "Same environment, same data, trustworthy verdict.", Experience: 20},
						{Text: "On production, the real thing", Outcome: "You risked live data to verify a staged fix.", Experience: -15},
					},
				},
				{
					ID: 4, Level: domain.LevelBasic, Title: "Fix confirmed, now what",
					Description: "The reported case now passes on the fixed build. What is the next step before closing?",
					Options: []domain.Option{
						{Text: "Close immediately, job done", Outcome: "A sibling path still failed.", Experience: -5},
						{Text: "Run a quick regression around the changed area", Outcome: "You catch side effects of the change while it is cheap.", Experience: 20, Tool: "Regression Sweep"},
						{Text: "Reassign to another tester for a second opinion", Outcome: "Duplicate effort for a routine close.", Experience: 0},
					},
				},
				{
					ID: 5, Level: domain.LevelBasic, Title: "Cannot reproduce",
					Description: "You cannot reproduce the original bug on the old build either. What do you record?",
					Options: []domain.Option{
						{Text: "Mark the fix verified", Outcome: "You verified nothing; the bug was data-dependent.", Experience: -10},
						{Text: "Note the exact builds, steps, and data tried, then ask the reporter to review", Outcome: "The reporter spots the missing precondition in your notes.", Experience: 20},
						{Text: "Close as not reproducible without notes", Outcome: "The bug returned with no trail to follow.", Experience: -15},
					},
				},
			},
			domain.LevelIntermediate: {
				{
					ID: 6, Level: domain.LevelIntermediate, Title: "Partial fix",
					Description: "Three of four reported cases now pass; one still fails. The release is tomorrow.",
					Options: []domain.Option{
						{Text: "Close the ticket and raise a new bug for the remaining case", Outcome: "Clear state: fixed parts ship, the remainder is tracked with its own severity.", Experience: 25},
						{Text: "Keep the whole ticket open", Outcome: "The fixed cases were blocked from the release notes.", Experience: 0},
						{Text: "Close it all, one failure is minor", Outcome: "The minor failure was a data-loss path.", Experience: -15},
					},
				},
				{
					ID: 7, Level: domain.LevelIntermediate, Title: "Flaky verification",
					Description: "The fix passes twice and fails once across five runs. What is your verdict?",
					Options: []domain.Option{
						{Text: "Pass, majority wins", Outcome: "Intermittent failures are failures.", Experience: -15},
						{Text: "Fail, and attach run logs with timing details for each attempt", Outcome: "The logs expose a race the fix narrowed but did not close.", Experience: 25, Tool: "Timing Log"},
						{Text: "Run it twenty more times before deciding", Outcome: "More runs without instrumentation added no information.", Experience: 5},
					},
				},
				{
					ID: 8, Level: domain.LevelIntermediate, Title: "Fix changed the behaviour",
					Description: "The crash is gone, but the feature now behaves differently from the spec.",
					Options: []domain.Option{
						{Text: "Verify: the crash was the bug", Outcome: "You signed off a silent spec violation.", Experience: -10},
						{Text: "Fail verification and document the behavioural difference against the spec", Outcome: "The developer sees exactly what diverged and why it matters.", Experience: 25},
						{Text: "Open a discussion thread and wait", Outcome: "The ticket stalled in limbo past the release.", Experience: 0},
					},
				},
				{
					ID: 9, Level: domain.LevelIntermediate, Title: "Verification data",
					Description: "The bug only occurred with a malformed import file the reporter attached. The fix must be verified with what?",
					Options: []domain.Option{
						{Text: "A clean sample file", Outcome: "Clean files never triggered the bug.", Experience: -10},
						{Text: "The original attachment plus variants around the malformation", Outcome: "The original case passes and two neighbouring malformations get caught.", Experience: 25},
						{Text: "Whatever file is at hand", Outcome: "Unrelated data, unrelated verdict.", Experience: -5},
					},
				},
				{
					ID: 10, Level: domain.LevelIntermediate, Title: "Developer pressure",
					Description: "The developer insists the fix is trivial and asks you to skip re-testing to make the cut-off.",
					Options: []domain.Option{
						{Text: "Skip it, they know the code", Outcome: "The trivial fix broke the adjacent locale path.", Experience: -15},
						{Text: "Run a time-boxed verification of the core case and say exactly what was and wasn't covered", Outcome: "Honest scope: the cut-off holds and the risk is on record.", Experience: 25},
						{Text: "Refuse to verify under deadline", Outcome: "Stand-off helped nobody.", Experience: -5},
					},
				},
			},
			domain.LevelAdvanced: {
				{
					ID: 11, Level: domain.LevelAdvanced, Title: "Root cause mismatch",
					Description: "The fix makes the symptom disappear, but the commit touches a module unrelated to your analysis of the cause.",
					Options: []domain.Option{
						{Text: "Verify, the symptom is gone", Outcome: "The real defect resurfaced under load a week later.", Experience: -10},
						{Text: "Ask the developer how the change addresses the cause before issuing a verdict", Outcome: "It didn't; the commit masked the symptom. The real fix followed.", Experience: 25, Tool: "Root Cause Map"},
						{Text: "Fail it because the commit looks wrong", Outcome: "You blocked a correct fix you hadn't understood.", Experience: -5},
					},
				},
				{
					ID: 12, Level: domain.LevelAdvanced, Title: "Cross-version verification",
					Description: "The bug was fixed on the main branch but the customer runs the LTS release. What does verification require?",
					Options: []domain.Option{
						{Text: "Verify on main only", Outcome: "The backport to LTS was never made.", Experience: -10},
						{Text: "Verify on main and confirm the backport ticket exists and is scheduled", Outcome: "Both branches are covered and the customer gets a date.", Experience: 25},
						{Text: "Verify on LTS only", Outcome: "Main regressed again; no one re-checked it.", Experience: 0},
					},
				},
				{
					ID: 13, Level: domain.LevelAdvanced, Title: "Silent data repair",
					Description: "The fix includes a migration that rewrites stored records. How do you verify it?",
					Options: []domain.Option{
						{Text: "Check the app behaviour after migration", Outcome: "Behaviour was fine; three corrupted rows were silently dropped.", Experience: -5},
						{Text: "Diff record counts and spot-check rewritten rows against a pre-migration snapshot", Outcome: "The dropped rows show up in the diff before any customer notices.", Experience: 25, Tool: "Snapshot Diff"},
						{Text: "Trust the migration's own log output", Outcome: "The log reported success while dropping rows.", Experience: -15},
					},
				},
				{
					ID: 14, Level: domain.LevelAdvanced, Title: "Verification debt",
					Description: "Ten fixed tickets await verification, the release is in two days, and you can verify six properly.",
					Options: []domain.Option{
						{Text: "Verify all ten superficially", Outcome: "Two shallow passes shipped regressions.", Experience: -15},
						{Text: "Rank by user impact, verify the top six deeply, and flag the remainder as unverified in the release notes", Outcome: "Risk is explicit and owned by the release decision, not hidden.", Experience: 25},
						{Text: "Verify in ticket-number order", Outcome: "The highest-impact fix was number nine.", Experience: -5},
					},
				},
				{
					ID: 15, Level: domain.LevelAdvanced, Title: "Reopened regression",
					Description: "A bug you verified fixed last release is reported again with slightly different steps.",
					Options: []domain.Option{
						{Text: "Reopen the old ticket", Outcome: "Old fix history and the new failure tangled into one thread.", Experience: 0},
						{Text: "File a new ticket linked to the old one and compare both repros before triage", Outcome: "The comparison shows a second code path with the same flaw.", Experience: 25},
						{Text: "Dismiss it as user error, you verified this", Outcome: "The new steps were a genuine second defect.", Experience: -15},
					},
				},
			},
		},
	}
}

func riskAnalysisQuiz() domain.Quiz {
	return domain.Quiz{
		Name:        "risk-analysis",
		Title:       "Risk Analysis",
		MaxXP:       domain.MaxExperience,
		PassPercent: domain.PassPercent,
		Pools: map[domain.Level][]domain.Scenario{
			domain.LevelBasic: {
				{
					ID: 101, Level: domain.LevelBasic, Title: "Where to start",
					Description: "You have one day to test a release touching payments, settings, and the help page.",
					Options: []domain.Option{
						{Text: "Start with the help page, it is quickest", Outcome: "Low-risk area consumed the morning.", Experience: -10},
						{Text: "Start with payments: highest impact, most changed", Outcome: "A rounding defect in payments is found with time to fix it.", Experience: 20},
						{Text: "Split the day evenly across all three", Outcome: "Even coverage, but the payment defect surfaced too late.", Experience: 5},
					},
				},
				{
					ID: 102, Level: domain.LevelBasic, Title: "New dependency",
					Description: "The release upgrades a third-party library two major versions. What does that mean for your plan?",
					Options: []domain.Option{
						{Text: "Nothing, the app code didn't change", Outcome: "Behavioural changes in the library broke two flows.", Experience: -10},
						{Text: "Treat every feature using the library as changed and test accordingly", Outcome: "The breaking change is caught at the first integration point.", Experience: 20},
						{Text: "Only read the library changelog", Outcome: "The changelog missed an undocumented behaviour change.", Experience: 5},
					},
				},
				{
					ID: 103, Level: domain.LevelBasic, Title: "Impact versus likelihood",
					Description: "Two known risks: a rare crash in checkout, and a frequent typo-level glitch on the dashboard. Limited time. Which first?",
					Options: []domain.Option{
						{Text: "The frequent glitch, more users see it", Outcome: "Cosmetic noise got polish while checkout kept crashing.", Experience: -5},
						{Text: "The rare checkout crash: low likelihood, severe impact", Outcome: "The crash loses orders; it outranks cosmetics at any frequency.", Experience: 20},
						{Text: "Whichever ticket is older", Outcome: "Age is not risk.", Experience: -10},
					},
				},
				{
					ID: 104, Level: domain.LevelBasic, Title: "Untouched area",
					Description: "A module has no code changes this release. How much testing does it need?",
					Options: []domain.Option{
						{Text: "Full regression, always", Outcome: "A third of the budget went to unchanged code.", Experience: 0},
						{Text: "A smoke pass, plus a check of its integration points with changed modules", Outcome: "The shared cache change is caught exactly at the boundary.", Experience: 20},
						{Text: "None, nothing changed", Outcome: "The changed module corrupted its shared state.", Experience: -10},
					},
				},
				{
					ID: 105, Level: domain.LevelBasic, Title: "Risk record",
					Description: "You identified five risks during planning. Where do they go?",
					Options: []domain.Option{
						{Text: "In your head, you'll remember", Outcome: "Two risks were forgotten by Thursday.", Experience: -10},
						{Text: "In a shared risk list with impact, likelihood, and an owner per entry", Outcome: "The team argues one entry down and one up; the list gets better.", Experience: 20, Tool: "Risk Register"},
						{Text: "In a private note", Outcome: "Nobody else could act on them.", Experience: 0},
					},
				},
			},
			domain.LevelIntermediate: {
				{
					ID: 106, Level: domain.LevelIntermediate, Title: "Shrinking window",
					Description: "Development slipped; your two-week test window is now four days. What changes?",
					Options: []domain.Option{
						{Text: "Work overtime and attempt the full plan", Outcome: "Exhausted testing missed more than the cut plan would have.", Experience: -10},
						{Text: "Re-rank by risk, cut the bottom tier explicitly, and publish what was cut", Outcome: "Stakeholders see precisely which risks ship untested.", Experience: 25},
						{Text: "Keep the plan and just test faster", Outcome: "Every area got shallower without anyone deciding that.", Experience: -15},
					},
				},
				{
					ID: 107, Level: domain.LevelIntermediate, Title: "Defect cluster",
					Description: "Mid-cycle, one component has produced four of the five defects found so far.",
					Options: []domain.Option{
						{Text: "Keep the original allocation", Outcome: "Three more defects shipped in the cluster.", Experience: -5},
						{Text: "Shift budget toward the clustering component; defects co-locate", Outcome: "Deeper digging finds the cluster's common cause.", Experience: 25, Tool: "Defect Heatmap"},
						{Text: "Stop testing elsewhere entirely", Outcome: "A severe defect slipped through an abandoned area.", Experience: -10},
					},
				},
				{
					ID: 108, Level: domain.LevelIntermediate, Title: "New engineer's code",
					Description: "A critical area was reworked by an engineer new to the codebase. The code review was approved.",
					Options: []domain.Option{
						{Text: "Approved review means normal risk", Outcome: "Reviews catch style, not unfamiliarity with invariants.", Experience: -5},
						{Text: "Raise the area's risk rating and add exploratory sessions around its edge cases", Outcome: "Two invariant violations surface in the first session.", Experience: 25},
						{Text: "Ask for a second code review instead of testing", Outcome: "The second review also missed the runtime issue.", Experience: 0},
					},
				},
				{
					ID: 109, Level: domain.LevelIntermediate, Title: "Quantifying a risk",
					Description: "Product asks 'how risky is shipping search without load testing?' What is the useful answer?",
					Options: []domain.Option{
						{Text: "'Very risky'", Outcome: "Unactionable; they shipped anyway.", Experience: -5},
						{Text: "Expected load, the largest dataset actually exercised, and what failure would look like", Outcome: "They delayed one day to run the missing test tier.", Experience: 25},
						{Text: "'That's not my call'", Outcome: "It was your data to supply.", Experience: -10},
					},
				},
				{
					ID: 110, Level: domain.LevelIntermediate, Title: "Mitigation choice",
					Description: "A risky migration cannot be fully tested before release. Which mitigation do you push for?",
					Options: []domain.Option{
						{Text: "Ship and monitor", Outcome: "Monitoring saw the corruption after it spread.", Experience: -5},
						{Text: "Feature-flag the migration with a staged rollout and a tested rollback", Outcome: "The flaw appears at 5% rollout and rolls back cleanly.", Experience: 25, Tool: "Rollback Plan"},
						{Text: "Block the release until full testing is possible", Outcome: "A month's delay for a risk a staged rollout could carry.", Experience: 5},
					},
				},
			},
			domain.LevelAdvanced: {
				{
					ID: 111, Level: domain.LevelAdvanced, Title: "Compound risk",
					Description: "Two medium risks interact: a retry change and a payment timeout change touch the same request path.",
					Options: []domain.Option{
						{Text: "Assess each on its own; both are medium", Outcome: "Together they caused duplicate charges, a high risk no single entry showed.", Experience: -10},
						{Text: "Model the combined path and test the interaction as its own high-risk item", Outcome: "The duplicate-charge window is found in the interaction test.", Experience: 25},
						{Text: "Escalate both to high individually", Outcome: "Inflated ratings, and the interaction still went untested.", Experience: 0},
					},
				},
				{
					ID: 112, Level: domain.LevelAdvanced, Title: "Residual risk sign-off",
					Description: "Testing is done; three known risks remain open. Who accepts them, and how?",
					Options: []domain.Option{
						{Text: "You accept them, testing is your domain", Outcome: "Risk acceptance is a business decision you made alone.", Experience: -10},
						{Text: "Present each with impact, likelihood, and evidence; the release owner signs off explicitly", Outcome: "One risk gets accepted, one deferred, one fixed overnight.", Experience: 25},
						{Text: "List them in a wiki page nobody is asked to read", Outcome: "Silent documentation is not acceptance.", Experience: -5},
					},
				},
				{
					ID: 113, Level: domain.LevelAdvanced, Title: "Model drift",
					Description: "Production incidents keep occurring in areas your risk model rates low. What is the response?",
					Options: []domain.Option{
						{Text: "Incidents happen; keep the model", Outcome: "The model kept pointing away from where failures live.", Experience: -15},
						{Text: "Feed incident data back into the model and re-weight the failing areas", Outcome: "The next cycle's plan finally covers where production actually breaks.", Experience: 25, Tool: "Incident Feedback Loop"},
						{Text: "Abandon risk-based testing", Outcome: "Uniform shallow coverage did worse than the flawed model.", Experience: -5},
					},
				},
				{
					ID: 114, Level: domain.LevelAdvanced, Title: "Third-party outage risk",
					Description: "Your release adds a hard dependency on an external API. Its SLA is 99.5%.",
					Options: []domain.Option{
						{Text: "The SLA is fine; proceed", Outcome: "99.5% is 3.6 hours a month of your feature being down.", Experience: -5},
						{Text: "Test degraded-mode behaviour: timeouts, errors, and slow responses from the API", Outcome: "The app hangs on slow responses, found before the first real outage.", Experience: 25},
						{Text: "Demand a better SLA before testing", Outcome: "Contract talk stalled while the hang shipped.", Experience: -10},
					},
				},
				{
					ID: 115, Level: domain.LevelAdvanced, Title: "Inherited system",
					Description: "Your team inherits a service with no tests, no docs, and a release due in three weeks.",
					Options: []domain.Option{
						{Text: "Freeze all changes until tests exist", Outcome: "Three weeks of paralysis and the release shipped untested anyway.", Experience: -5},
						{Text: "Chart the blast radius of the planned changes and build characterization tests there first", Outcome: "A thin test belt around the actual changes catches both regressions.", Experience: 25},
						{Text: "Test everything shallowly", Outcome: "Shallow everywhere, deep nowhere the release needed it.", Experience: 0},
					},
				},
			},
		},
	}
}
