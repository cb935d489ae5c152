// v0
// internal/api/dashboard.go
package api

// dashboardHTML is the single-page status view. It polls /api/latest every
// few seconds and renders the live values plus a power history sparkline,
// so no static assets need to ship alongside the binary.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Solar Monitor</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; background: #10141a; color: #e6e8eb; }
  h1 { font-size: 1.4rem; }
  .cards { display: flex; flex-wrap: wrap; gap: 1rem; margin-bottom: 1.5rem; }
  .card { background: #1a2029; border-radius: 8px; padding: 1rem 1.5rem; min-width: 9rem; }
  .card .label { font-size: 0.8rem; color: #8b949e; text-transform: uppercase; }
  .card .value { font-size: 1.6rem; margin-top: 0.25rem; }
  #status { margin-bottom: 1rem; }
  .stale { color: #e5534b; }
  .fresh { color: #57ab5a; }
  canvas { background: #1a2029; border-radius: 8px; width: 100%; max-width: 720px; }
</style>
</head>
<body>
<h1>Solar Monitor</h1>
<div id="status">connecting&hellip;</div>
<div class="cards">
  <div class="card"><div class="label">Voltage</div><div class="value" id="voltage">&ndash;</div></div>
  <div class="card"><div class="label">Current</div><div class="value" id="current">&ndash;</div></div>
  <div class="card"><div class="label">Power</div><div class="value" id="power">&ndash;</div></div>
  <div class="card"><div class="label">Energy today</div><div class="value" id="energy">&ndash;</div></div>
  <div class="card"><div class="label">Panel front</div><div class="value" id="tfront">&ndash;</div></div>
  <div class="card"><div class="label">Panel back</div><div class="value" id="tback">&ndash;</div></div>
</div>
<canvas id="chart" width="720" height="200"></canvas>
<script>
const fmt = (v, unit, digits) => v === null || v === undefined ? "n/a" : v.toFixed(digits) + unit;

function drawChart(history) {
  const canvas = document.getElementById("chart");
  const ctx = canvas.getContext("2d");
  ctx.clearRect(0, 0, canvas.width, canvas.height);
  if (!history.length) return;
  const powers = history.map(s => s.power_w);
  const max = Math.max(...powers, 1);
  ctx.strokeStyle = "#f0b429";
  ctx.lineWidth = 2;
  ctx.beginPath();
  history.forEach((s, i) => {
    const x = i / Math.max(history.length - 1, 1) * (canvas.width - 20) + 10;
    const y = canvas.height - 10 - (s.power_w / max) * (canvas.height - 20);
    i === 0 ? ctx.moveTo(x, y) : ctx.lineTo(x, y);
  });
  ctx.stroke();
}

async function refresh() {
  try {
    const res = await fetch("/api/latest");
    const snap = await res.json();
    const status = document.getElementById("status");
    if (snap.status.stale) {
      status.textContent = "STALE" + (snap.status.last_error ? " — " + snap.status.last_error : "");
      status.className = "stale";
    } else {
      status.textContent = "live — " + snap.latest.timestamp;
      status.className = "fresh";
    }
    if (snap.latest) {
      document.getElementById("voltage").textContent = fmt(snap.latest.voltage_v, " V", 2);
      document.getElementById("current").textContent = fmt(snap.latest.current_a, " A", 2);
      document.getElementById("power").textContent = fmt(snap.latest.power_w, " W", 1);
      document.getElementById("energy").textContent = fmt(snap.latest.energy_wh_day, " Wh", 1);
      document.getElementById("tfront").textContent = fmt(snap.latest.temp_front_c, " °C", 1);
      document.getElementById("tback").textContent = fmt(snap.latest.temp_back_c, " °C", 1);
    }
    drawChart(snap.history || []);
  } catch (err) {
    const status = document.getElementById("status");
    status.textContent = "API unreachable: " + err;
    status.className = "stale";
  }
}

refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>
`
